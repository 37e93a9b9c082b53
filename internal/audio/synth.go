package audio

import (
	"encoding/binary"
	"math"
	"time"
)

const (
	SampleRate   = 48000
	ChannelCount = 2
	// Volume scales every cue.
	Volume = 0.5
)

// Note is one tone of a chime.
type Note struct {
	Frequency float64
	Duration  time.Duration
}

// StartChime rises, EndChime falls.
var (
	StartChime = []Note{{Frequency: 659.25, Duration: 180 * time.Millisecond}, {Frequency: 987.77, Duration: 420 * time.Millisecond}}
	EndChime   = []Note{{Frequency: 987.77, Duration: 180 * time.Millisecond}, {Frequency: 659.25, Duration: 420 * time.Millisecond}}
)

// Synthesize renders notes back to back as interleaved stereo signed 16-bit
// little-endian PCM. Each note is a sine with an exponential decay and a
// short attack so it starts and ends without clicks.
func Synthesize(notes []Note, sampleRate int, volume float64) []byte {
	volume = math.Max(0, math.Min(volume, 1))
	var total int
	for _, note := range notes {
		total += frames(note.Duration, sampleRate)
	}
	pcm := make([]byte, 0, total*ChannelCount*2)

	attack := sampleRate / 200
	for _, note := range notes {
		n := frames(note.Duration, sampleRate)
		decay := 5.0 / float64(max(n, 1))
		for i := 0; i < n; i++ {
			envelope := math.Exp(-decay * float64(i))
			if i < attack {
				envelope *= float64(i) / float64(attack)
			}
			sample := math.Sin(2*math.Pi*note.Frequency*float64(i)/float64(sampleRate)) * envelope * volume
			value := uint16(int16(math.Round(sample * math.MaxInt16)))
			for c := 0; c < ChannelCount; c++ {
				pcm = binary.LittleEndian.AppendUint16(pcm, value)
			}
		}
	}
	return pcm
}

func frames(duration time.Duration, sampleRate int) int {
	return int(duration.Seconds() * float64(sampleRate))
}

package input

const usKeymap = `xkb_keymap {
xkb_keycodes "evdev+aliases(qwerty)" {
	minimum = 8;
	maximum = 255;
	<ESC>                = 9;
	<AE01>               = 10;
	<RTRN>               = 36;
	<AC01>               = 38;
	<AB01>               = 52;
	<SPCE>               = 65;
	<KPEN>               = 104;
	indicator 1 = "Caps Lock";
	alias <LatZ>         = <AB01>;
};

xkb_types "complete" {
	type "ONE_LEVEL" {
		modifiers= none;
		level_name[Level1]= "Any";
	};
};

xkb_compat "complete" {
	interpret Shift_Lock+AnyOf(Shift+Lock) {
		action= LockMods(modifiers=Shift);
	};
};

xkb_symbols "pc+us+inet(evdev)" {
	name[group1]="English (US)";
	key <ESC>                {	[          Escape ] };
	key <AE01>               {	[               1,          exclam ] };
	key <RTRN>               {	[          Return ] };
	key <AC01>               {
		type= "ALPHABETIC",
		symbols[Group1]= [               a,               A ]
	};
	key <LatZ>               {
		type= "ALPHABETIC",
		symbols[Group1]= [               z,               Z ],
		symbols[Group2]= [           U044F,           U042F ]
	};
	key <SPCE>               {	[           space ] };
	key <KPEN>               {	[        KP_Enter ] };
};
};
`

package rules

// PlacementKind classifies a completed lock by lines cleared and T-spin
// status, the basis for garbage computation and evaluator reward tables.
type PlacementKind int

const (
	KindNone PlacementKind = iota
	KindClear1
	KindClear2
	KindClear3
	KindClear4
	KindMiniTspin
	KindMiniTspin1
	KindMiniTspin2
	KindTspin
	KindTspin1
	KindTspin2
	KindTspin3
)

// GetPlacementKind maps (lines cleared, T-spin status) to a PlacementKind,
// matching the guideline's T-spin/line-clear naming table.
func GetPlacementKind(cleared int, tspin TspinStatus) PlacementKind {
	switch {
	case cleared == 0 && tspin == TspinNone:
		return KindNone
	case cleared == 0 && tspin == TspinMini:
		return KindMiniTspin
	case cleared == 0 && tspin == TspinFull:
		return KindTspin
	case cleared == 1 && tspin == TspinNone:
		return KindClear1
	case cleared == 1 && tspin == TspinMini:
		return KindMiniTspin1
	case cleared == 1 && tspin == TspinFull:
		return KindTspin1
	case cleared == 2 && tspin == TspinNone:
		return KindClear2
	case cleared == 2 && tspin == TspinMini:
		return KindMiniTspin2
	case cleared == 2 && tspin == TspinFull:
		return KindTspin2
	case cleared == 3 && tspin == TspinFull:
		return KindTspin3
	case cleared == 3:
		return KindClear3
	case cleared == 4:
		return KindClear4
	default:
		return KindNone
	}
}

// Garbage is the base attack sent by this placement kind, before
// back-to-back and combo bonuses are added.
func (k PlacementKind) Garbage() int {
	switch k {
	case KindClear2, KindMiniTspin2:
		return 1
	case KindClear3, KindTspin1:
		return 2
	case KindClear4, KindTspin2:
		return 4
	case KindTspin3:
		return 6
	default:
		return 0
	}
}

// IsHard reports whether this placement kind counts toward back-to-back.
func (k PlacementKind) IsHard() bool {
	switch k {
	case KindClear4, KindMiniTspin1, KindMiniTspin2, KindTspin1, KindTspin2, KindTspin3:
		return true
	default:
		return false
	}
}

// IsClear reports whether any line was cleared at all (breaks combo vs.
// resets back-to-back for a non-hard non-clear placement).
func (k PlacementKind) IsClear() bool {
	switch k {
	case KindNone, KindMiniTspin, KindTspin:
		return false
	default:
		return true
	}
}

func (k PlacementKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindClear1:
		return "single"
	case KindClear2:
		return "double"
	case KindClear3:
		return "triple"
	case KindClear4:
		return "tetris"
	case KindMiniTspin:
		return "mini-tspin"
	case KindMiniTspin1:
		return "mini-tspin-single"
	case KindMiniTspin2:
		return "mini-tspin-double"
	case KindTspin:
		return "tspin"
	case KindTspin1:
		return "tspin-single"
	case KindTspin2:
		return "tspin-double"
	case KindTspin3:
		return "tspin-triple"
	default:
		return "?"
	}
}

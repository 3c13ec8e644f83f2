package ast

// Visibility описывает доступность объявления за пределами его модуля.
type Visibility uint8

const (
	VisPrivate Visibility = iota
	VisPublic
)

func (v Visibility) IsPublic() bool { return v == VisPublic }

func (v Visibility) String() string {
	switch v {
	case VisPublic:
		return "pub"
	default:
		return "private"
	}
}

package config

import (
	"fmt"
	"strings"
)

// Mode selects which monitors run.
type Mode string

const (
	ModeAll      Mode = "all"
	ModeOffers   Mode = "offers"
	ModeConsigns Mode = "consigns"
)

// ParseMode accepts the mode names as well as their numeric forms 0, 1 and 2.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "all":
		return ModeAll, nil
	case "1", "offers":
		return ModeOffers, nil
	case "2", "consigns":
		return ModeConsigns, nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", ErrInvalid, s)
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m Mode) Offers() bool {
	return m == ModeAll || m == ModeOffers
}

func (m Mode) Consigns() bool {
	return m == ModeAll || m == ModeConsigns
}

// Package fan maps a percentage setpoint onto the relay board.
// The mapping is pure; the only side effect goes through gpio.Writer.
package fan

import "fmt"

// Percent is the externally visible fan setpoint. The meaningful domain is
// 0-99, but any byte is accepted because the stored value is replayed as is.
type Percent uint8

// MaxPercent is the highest setpoint the host channel offers.
const MaxPercent Percent = 99

// Level is one of the discrete speeds the relay board can select.
type Level uint8

const (
	Off Level = iota
	VeryLow
	Low
	Mid
	High
	Full
)

// NumLevels is the number of rows in the relay table.
const NumLevels = 6

var levelNames = [NumLevels]string{"OFF", "VERY_LOW", "LOW", "MID", "HIGH", "FULL"}

func (l Level) String() string {
	if l < NumLevels {
		return levelNames[l]
	}
	return fmt.Sprintf("Level(%d)", uint8(l))
}

// Discretize maps a setpoint to a speed level. Thresholds are strict, so
// 1-20 is VeryLow and 81 upwards is Full. Values above 99 are not rejected;
// they resolve to Full.
func Discretize(p Percent) Level {
	switch {
	case p > 80:
		return Full
	case p > 60:
		return High
	case p > 40:
		return Mid
	case p > 20:
		return Low
	case p > 0:
		return VeryLow
	default:
		return Off
	}
}

package fan

import (
	"log"

	"github.com/sweeney/vent-controller/internal/gpio"
)

// RelayChannels is the number of relay channels the table drives. The board
// has one more channel, a spare that the driver never writes.
const RelayChannels = 5

const (
	rest = gpio.Inactive
	on   = gpio.Active
)

// relayTable is the fan wiring: rows are levels, columns are relay channels
// 1-5. Channel 5 switches mains to the motor, channels 1-4 select the
// winding tap.
var relayTable = [NumLevels][RelayChannels]gpio.Drive{
	Off:     {rest, rest, rest, rest, rest},
	VeryLow: {on, rest, rest, rest, on},
	Low:     {on, on, rest, rest, on},
	Mid:     {rest, on, rest, rest, on},
	High:    {rest, rest, on, rest, on},
	Full:    {rest, rest, rest, on, on},
}

// Row returns the relay states for a level. ok is false when the level is
// outside the table.
func Row(l Level) (row [RelayChannels]gpio.Drive, ok bool) {
	if l >= NumLevels {
		return row, false
	}
	return relayTable[l], true
}

// Driver applies relay table rows to the board.
type Driver struct {
	out gpio.Writer
}

// NewDriver creates a Driver writing to out.
func NewDriver(out gpio.Writer) *Driver {
	return &Driver{out: out}
}

// Apply writes the row for level to relay channels 1-5. A level outside the
// table is ignored. A failed write is logged and the remaining channels are
// still written.
func (d *Driver) Apply(level Level) {
	row, ok := Row(level)
	if !ok {
		log.Printf("relay: ignoring out-of-range level %d", level)
		return
	}
	for i, drive := range row {
		if err := d.out.Write(i+1, drive); err != nil {
			log.Printf("relay: write channel %d: %v", i+1, err)
		}
	}
}

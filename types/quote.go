package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Venue int

const (
	VenueCEX Venue = iota + 1
	VenueDEX
)

func (v Venue) String() string {
	switch v {
	case VenueCEX:
		return "CEX"
	case VenueDEX:
		return "DEX"
	default:
		return fmt.Sprintf("Venue(%d)", int(v))
	}
}

func ParseVenue(s string) (Venue, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CEX":
		return VenueCEX, nil
	case "DEX":
		return VenueDEX, nil
	}
	return 0, fmt.Errorf("unknown venue %q", s)
}

type Direction int

const (
	Buy Direction = iota + 1
	Sell
)

func (d Direction) String() string {
	switch d {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

func (d Direction) Opposite() Direction {
	if d == Buy {
		return Sell
	}
	return Buy
}

// Quote is an executable unit price in settlement currency per base unit.
// A zero Quote, or one built from a non-positive price, is unavailable.
type Quote struct {
	Asset     string
	Venue     Venue
	Direction Direction
	Price     decimal.Decimal
	available bool
}

func NewQuote(asset string, venue Venue, dir Direction, price decimal.Decimal) Quote {
	q := Quote{Asset: asset, Venue: venue, Direction: dir}
	if price.IsPositive() {
		q.Price = price
		q.available = true
	}
	return q
}

func Unavailable(asset string, venue Venue, dir Direction) Quote {
	return Quote{Asset: asset, Venue: venue, Direction: dir}
}

func (q Quote) Available() bool { return q.available }

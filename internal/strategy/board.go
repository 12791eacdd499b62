package strategy

import (
	"math"
	"strings"
)

// BoardLimit is the daily price-move ceiling for a listing board.
type BoardLimit struct {
	Name  string
	Limit float64 // fractional, e.g. 0.10 for ±10%
}

var (
	mainBoard = BoardLimit{Name: "main", Limit: 0.10}
	starChi   = BoardLimit{Name: "star_chinext", Limit: 0.20}
	beijing   = BoardLimit{Name: "beijing", Limit: 0.30}
)

var mainBoardPrefixes = []string{"600", "601", "603", "605", "000", "001"}
var starChiPrefixes = []string{"688", "300", "301"}
var beijingPrefixes = []string{"43", "83", "87", "920"}

// BoardFor infers the listing board's daily limit from a 6-digit code
// prefix, per the §4.D board table.
func BoardFor(code string) BoardLimit {
	for _, p := range starChiPrefixes {
		if strings.HasPrefix(code, p) {
			return starChi
		}
	}
	for _, p := range beijingPrefixes {
		if strings.HasPrefix(code, p) {
			return beijing
		}
	}
	for _, p := range mainBoardPrefixes {
		if strings.HasPrefix(code, p) {
			return mainBoard
		}
	}
	return mainBoard
}

const (
	priceEpsilon  = 0.001
	changeEpsilon = 0.001
)

// Ceiling returns round(prevClose * (1+limit), 2), the board's daily
// price ceiling.
func Ceiling(prevClose float64, limit float64) float64 {
	return math.Round(prevClose*(1+limit)*100) / 100
}

// IsLimitUp reports whether price/changePct reach the board's ceiling,
// honoring the ε tolerances from §4.D's boundary rule: a price exactly at
// the rounded limit (≥ ceiling − ε) is limit-up.
func IsLimitUp(code string, price, prevClose, changePct float64) bool {
	board := BoardFor(code)
	ceiling := Ceiling(prevClose, board.Limit)
	return price >= ceiling-priceEpsilon && changePct >= board.Limit-changeEpsilon
}

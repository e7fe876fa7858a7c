// Package layout derives the seat grid of a hall from its dimensions.
//
// Rows are labelled A..Z, then AA, AB .. AZ, BA .. ZZ, AAA and so on
// (bijective base-26). Seats inside a row are numbered from 1.
package layout

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidDimensions is returned when a hall has no rows or no seats per row.
var ErrInvalidDimensions = errors.New("layout: rows and seats per row must be positive")

// Row is one row of the grid: its label and the seat numbers it holds.
type Row struct {
	Label   string
	Numbers []int
}

// Rows returns the ordered rows of a rows x seatsPerRow hall.
func Rows(rows, seatsPerRow int) ([]Row, error) {
	if rows < 1 || seatsPerRow < 1 {
		return nil, ErrInvalidDimensions
	}
	out := make([]Row, rows)
	for i := 0; i < rows; i++ {
		nums := make([]int, seatsPerRow)
		for n := range nums {
			nums[n] = n + 1
		}
		out[i] = Row{Label: RowLabel(i), Numbers: nums}
	}
	return out, nil
}

// Capacity is the number of seats in a rows x seatsPerRow hall.
func Capacity(rows, seatsPerRow int) int {
	if rows < 1 || seatsPerRow < 1 {
		return 0
	}
	return rows * seatsPerRow
}

// RowLabel converts a zero-based row index to its label. Negative
// indices yield an empty string.
func RowLabel(i int) string {
	if i < 0 {
		return ""
	}
	var res []byte
	for {
		res = append(res, byte('A'+i%26))
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
		res[j], res[k] = res[k], res[j]
	}
	return string(res)
}

// RowIndex is the inverse of RowLabel. Lower-case letters and surrounding
// spaces are accepted.
func RowIndex(label string) (int, bool) {
	s := strings.ToUpper(strings.TrimSpace(label))
	if s == "" {
		return -1, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch < 'A' || ch > 'Z' {
			return -1, false
		}
		n = n*26 + int(ch-'A'+1)
	}
	return n - 1, true
}

// SeatLabel joins a row label and seat number, e.g. "B7".
func SeatLabel(row string, number int) string {
	return row + strconv.Itoa(number)
}

// Package board holds the raw piece-on-square position reported by a DGT board.
//
// Squares are indexed in board dump order: 0 is a8, 7 is h8, 56 is a1, 63 is h1.
package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const Squares = 64

// Piece is the DGT piece code of one square.
type Piece byte

const (
	Empty       Piece = 0x00
	WhitePawn   Piece = 0x01
	WhiteRook   Piece = 0x02
	WhiteKnight Piece = 0x03
	WhiteBishop Piece = 0x04
	WhiteKing   Piece = 0x05
	WhiteQueen  Piece = 0x06
	BlackPawn   Piece = 0x07
	BlackRook   Piece = 0x08
	BlackKnight Piece = 0x09
	BlackBishop Piece = 0x0a
	BlackKing   Piece = 0x0b
	BlackQueen  Piece = 0x0c
)

var pieceChars = map[Piece]byte{
	WhitePawn:   'P',
	WhiteRook:   'R',
	WhiteKnight: 'N',
	WhiteBishop: 'B',
	WhiteKing:   'K',
	WhiteQueen:  'Q',
	BlackPawn:   'p',
	BlackRook:   'r',
	BlackKnight: 'n',
	BlackBishop: 'b',
	BlackKing:   'k',
	BlackQueen:  'q',
}

var charPieces = func() map[byte]Piece {
	out := make(map[byte]Piece, len(pieceChars))
	for p, c := range pieceChars {
		out[c] = p
	}
	return out
}()

var ErrInvalidFEN = errors.New("board: invalid fen")

// Known reports whether p is empty or one of the twelve piece codes.
func (p Piece) Known() bool {
	if p == Empty {
		return true
	}
	_, ok := pieceChars[p]
	return ok
}

// Char returns the FEN letter, '.' for empty and '?' for codes outside the table.
func (p Piece) Char() byte {
	if p == Empty {
		return '.'
	}
	if c, ok := pieceChars[p]; ok {
		return c
	}
	return '?'
}

// Board is a full 8x8 grid. It is a value: copies never share state.
type Board [Squares]Piece

// FromBytes builds a board from a 64 byte dump.
func FromBytes(raw []byte) (Board, error) {
	var b Board
	if len(raw) != Squares {
		return b, fmt.Errorf("board: dump has %d squares, want %d", len(raw), Squares)
	}
	for i, c := range raw {
		b[i] = Piece(c)
	}
	return b, nil
}

// ParseFEN reads the piece placement field of a FEN string.
func ParseFEN(fen string) (Board, error) {
	var b Board
	placement := strings.Fields(fen)
	if len(placement) == 0 {
		return b, fmt.Errorf("%w: empty", ErrInvalidFEN)
	}
	rows := strings.Split(placement[0], "/")
	if len(rows) != 8 {
		return b, fmt.Errorf("%w: expected 8 rows in %q", ErrInvalidFEN, fen)
	}

	square := 0
	for _, row := range rows {
		cols := 0
		prevDigit := false
		for i := 0; i < len(row); i++ {
			c := row[i]
			switch {
			case c >= '1' && c <= '8':
				if prevDigit {
					return Board{}, fmt.Errorf("%w: two subsequent digits in %q", ErrInvalidFEN, fen)
				}
				cols += int(c - '0')
				prevDigit = true
			default:
				p, ok := charPieces[c]
				if !ok {
					return Board{}, fmt.Errorf("%w: invalid character %q in %q", ErrInvalidFEN, c, fen)
				}
				if cols < 8 {
					b[square+cols] = p
				}
				cols++
				prevDigit = false
			}
		}
		if cols != 8 {
			return Board{}, fmt.Errorf("%w: expected 8 columns per row in %q", ErrInvalidFEN, fen)
		}
		square += 8
	}
	return b, nil
}

// FEN renders the piece placement field. Codes outside the piece table
// render as '?', so only boards whose pieces are all Known parse back
// through ParseFEN.
func (b Board) FEN() string {
	var sb strings.Builder
	empty := 0
	for i, p := range b {
		if p == Empty {
			empty++
		}
		if empty > 0 && (p != Empty || (i+1)%8 == 0) {
			sb.WriteString(strconv.Itoa(empty))
			empty = 0
		}
		if p != Empty {
			sb.WriteByte(p.Char())
		}
		if (i+1)%8 == 0 && i < Squares-1 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}

// String renders eight space separated rows, rank 8 first.
func (b Board) String() string {
	var sb strings.Builder
	for i, p := range b {
		sb.WriteByte(p.Char())
		switch {
		case i == Squares-1:
		case i%8 == 7:
			sb.WriteByte('\n')
		default:
			sb.WriteByte(' ')
		}
	}
	return sb.String()
}

// SquareName returns the algebraic name of a dump index, e.g. 0 -> "a8".
func SquareName(index int) string {
	if index < 0 || index >= Squares {
		return "??"
	}
	file := byte('a' + index%8)
	rank := byte('8' - index/8)
	return string([]byte{file, rank})
}

// Set places p on square index and reports whether the index was valid.
func (b *Board) Set(index int, p Piece) bool {
	if index < 0 || index >= Squares {
		return false
	}
	b[index] = p
	return true
}

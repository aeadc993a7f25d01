package board

import (
	"errors"
	"testing"
)

func TestEmptyBoardFEN(t *testing.T) {
	var b Board
	if got := b.FEN(); got != "8/8/8/8/8/8/8/8" {
		t.Fatalf("unexpected fen: %q", got)
	}
}

func TestFENRoundTrip(t *testing.T) {
	for _, fen := range []string{
		"2k3nr/ppp1bpp1/8/4n3/2Pr4/5NPq/PP1BPP1P/R2Q1RK1",
		"rnbqkbnr/pppppppp/8/8/3P4/8/PPP1PPPP/RNBQKBNR",
		"R7/8/8/8/8/8/8/8",
	} {
		b, err := ParseFEN(fen)
		if err != nil {
			t.Fatalf("parse %q: %v", fen, err)
		}
		if got := b.FEN(); got != fen {
			t.Fatalf("fen round trip got=%q want=%q", got, fen)
		}
	}
}

func TestParseFENAcceptsFullFENString(t *testing.T) {
	b, err := ParseFEN("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if b[0] != BlackRook || b[60] != WhiteKing {
		t.Fatalf("unexpected squares a8=%v e1=%v", b[0], b[60])
	}
}

func TestParseFENRejectsMalformed(t *testing.T) {
	for _, fen := range []string{
		"",
		"8/8/8/8/8/8/8",
		"44/8/8/8/8/8/8/8",
		"9/8/8/8/8/8/8/8",
		"x7/8/8/8/8/8/8/8",
		"ppppppppp/8/8/8/8/8/8/8",
	} {
		if _, err := ParseFEN(fen); !errors.Is(err, ErrInvalidFEN) {
			t.Fatalf("expected ErrInvalidFEN for %q, got %v", fen, err)
		}
	}
}

func TestFromBytesRookOnFirstSquare(t *testing.T) {
	raw := make([]byte, Squares)
	raw[0] = byte(WhiteRook)
	b, err := FromBytes(raw)
	if err != nil {
		t.Fatalf("from bytes: %v", err)
	}
	var want Board
	want[0] = WhiteRook
	if b != want {
		t.Fatalf("unexpected board:\n%s", b)
	}
	if b.FEN() != "R7/8/8/8/8/8/8/8" {
		t.Fatalf("unexpected fen: %q", b.FEN())
	}
	if _, err := FromBytes(raw[:10]); err == nil {
		t.Fatalf("expected short dump error")
	}
}

func TestStringAndUnknownPieces(t *testing.T) {
	var b Board
	b.Set(0, WhiteRook)
	b.Set(63, Piece(0x0e))
	s := b.String()
	if s[:2] != "R " {
		t.Fatalf("unexpected first row: %q", s[:15])
	}
	if s[len(s)-1] != '?' {
		t.Fatalf("unexpected last square: %q", s[len(s)-1])
	}
	if Piece(0x0e).Known() || !WhiteQueen.Known() {
		t.Fatalf("unexpected Known results")
	}
	if b.Set(64, WhitePawn) {
		t.Fatalf("out of range set should fail")
	}
}

func TestFENUnknownPieceDoesNotParse(t *testing.T) {
	var b Board
	b.Set(0, WhiteRook)
	b.Set(9, Piece(0x0e))
	fen := b.FEN()
	if want := "R7/1?6/8/8/8/8/8/8"; fen != want {
		t.Fatalf("fen got=%s want=%s", fen, want)
	}
	if _, err := ParseFEN(fen); !errors.Is(err, ErrInvalidFEN) {
		t.Fatalf("unexpected parse err: %v", err)
	}
}

func TestSquareName(t *testing.T) {
	cases := map[int]string{0: "a8", 7: "h8", 56: "a1", 63: "h1", 64: "??"}
	for idx, want := range cases {
		if got := SquareName(idx); got != want {
			t.Fatalf("SquareName(%d) got=%q want=%q", idx, got, want)
		}
	}
}

package rules

import (
	"reflect"
	"testing"

	"github.com/wfunc/ludoclient/models"
)

func TestIsLegalMove(t *testing.T) {
	tests := []struct {
		name  string
		token models.Token
		dice  int
		want  bool
	}{
		{"home token needs a six", models.Token{IsHome: true}, 5, false},
		{"home token leaves on six", models.Token{IsHome: true}, 6, true},
		{"overshoot", models.Token{Position: 54}, 4, false},
		{"exact finish", models.Token{Position: 54}, 2, true},
		{"finished token never moves", models.Token{Position: FinishPosition, IsFinished: true}, 1, false},
		{"regular step", models.Token{Position: 10}, 3, true},
		{"zero is not a die face", models.Token{Position: 10}, 0, false},
		{"seven is not a die face", models.Token{Position: 10}, 7, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsLegalMove(tt.token, tt.dice); got != tt.want {
				t.Errorf("IsLegalMove(%+v, %d) = %v, want %v", tt.token, tt.dice, got, tt.want)
			}
		})
	}
}

func TestLegalMoves(t *testing.T) {
	player := models.Player{
		ID: "p1",
		Tokens: []models.Token{
			{ID: "t1", IsHome: true},
			{ID: "t2", Position: 20},
			{ID: "t3", Position: 55},
			{ID: "t4", Position: FinishPosition, IsFinished: true},
		},
	}

	if got := LegalMoves(player, 3); !reflect.DeepEqual(got, []string{"t2"}) {
		t.Errorf("LegalMoves(3) = %v, want [t2]", got)
	}
	if got := LegalMoves(player, 6); !reflect.DeepEqual(got, []string{"t1", "t2"}) {
		t.Errorf("LegalMoves(6) = %v, want [t1 t2]", got)
	}
	if !HasLegalMove(player, 1) {
		t.Error("expected a legal move for a roll of 1")
	}

	blocked := models.Player{Tokens: []models.Token{{ID: "t1", IsHome: true}}}
	if HasLegalMove(blocked, 4) {
		t.Error("a player with only home tokens cannot move on a 4")
	}
}

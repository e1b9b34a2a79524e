package exam

import "testing"

func TestValidateMultipleChoice(t *testing.T) {
	q := Question{
		ID:   "q1",
		Type: QuestionMultipleChoice,
		Choices: []Choice{
			{Num: 1, Text: "red"},
			{Num: 2, Text: "green"},
			{Num: 3, Text: "blue"},
		},
		CorrectAnswer: "2",
		Weight:        10,
	}

	cases := []struct {
		answer  string
		correct bool
		score   int
	}{
		{"2", true, 10},
		{"3", false, 0},
		{"banana", false, 0}, // malformed answer is incorrect, not an error
		{"0", false, 0},
		{"4", false, 0},
		{"", false, 0},
	}
	for _, tc := range cases {
		correct, score := Validate(q, tc.answer)
		if correct != tc.correct || score != tc.score {
			t.Errorf("answer %q: got (%v,%d) want (%v,%d)", tc.answer, correct, score, tc.correct, tc.score)
		}
	}
}

func TestValidateSubjective(t *testing.T) {
	q := Question{ID: "q2", Type: QuestionSubjective, CorrectAnswer: "Photosynthesis", Weight: 5}

	cases := []struct {
		answer  string
		correct bool
	}{
		{"Photosynthesis", true},
		{"photosynthesis", true},
		{"  PHOTOSYNTHESIS  ", true},
		{"photo synthesis", false},
		{"", false},
	}
	for _, tc := range cases {
		correct, score := Validate(q, tc.answer)
		if correct != tc.correct {
			t.Errorf("answer %q: correct=%v want %v", tc.answer, correct, tc.correct)
		}
		if correct && score != 5 {
			t.Errorf("answer %q: score=%d want 5", tc.answer, score)
		}
		if !correct && score != 0 {
			t.Errorf("answer %q: score=%d want 0", tc.answer, score)
		}
	}
}

func TestValidateUnknownType(t *testing.T) {
	q := Question{ID: "q3", Type: "essay", CorrectAnswer: "x", Weight: 5}
	if correct, score := Validate(q, "x"); correct || score != 0 {
		t.Fatalf("unknown type must not award: got (%v,%d)", correct, score)
	}
}

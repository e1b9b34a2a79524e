package exam

import (
	"strconv"
	"strings"
)

// Validate checks a student answer against the question's key and returns
// whether it is correct plus the awarded score. A question is worth its full
// weight or nothing; there is no partial credit.
//
// A multiple-choice answer must parse as an integer within the choice range
// and then match the stored key exactly. Anything malformed or out of range is
// simply incorrect, never an error.
func Validate(q Question, answer string) (bool, int) {
	switch q.Type {
	case QuestionMultipleChoice:
		n, err := strconv.Atoi(answer)
		if err != nil || n < 1 || n > len(q.Choices) {
			return false, 0
		}
		if answer == q.CorrectAnswer {
			return true, q.Weight
		}
		return false, 0
	case QuestionSubjective:
		if strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.CorrectAnswer)) {
			return true, q.Weight
		}
		return false, 0
	default:
		return false, 0
	}
}

package exam

import "errors"

var (
	ErrExamNotFound      = errors.New("exam not found")
	ErrResultNotFound    = errors.New("attempt not found")
	ErrWindowNotOpen     = errors.New("exam window not open")
	ErrWindowClosed      = errors.New("exam window closed")
	ErrAlreadySubmitted  = errors.New("attempt already submitted")
	ErrQuestionNotInExam = errors.New("question not in exam")
	ErrIncompleteAnswers = errors.New("unanswered questions remain")
	ErrNotSubmitted      = errors.New("attempt not submitted")
)

package queue

import "errors"

// Ошибки леджера очереди. Хендлеры сопоставляют их с HTTP-статусами,
// сами по себе они не привязаны к транспорту.
var (
	ErrSubjectNotFound = errors.New("subject not found")
	ErrAdmissionClosed = errors.New("cannot add to queue for a closed subject")
	// Текст фиксированный, он уходит клиенту как есть.
	ErrDuplicateEntry = errors.New("You are already in queue on this subject")
	ErrEntryNotFound  = errors.New("queue entry not found")
)

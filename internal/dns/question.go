package dns

import (
	"fmt"

	"github.com/domainwalk/recudns/internal/wire"
)

// Question is a single entry in a DNS message's question section.
type Question struct {
	Name  string
	Type  RecordType
	Class uint16
}

// Marshal writes the question at the buffer's current cursor.
func (q Question) Marshal(b *wire.Buffer) error {
	if err := b.WriteQName(q.Name); err != nil {
		return fmt.Errorf("dns: marshal question: %w", err)
	}
	if err := b.WriteU16(uint16(q.Type)); err != nil {
		return fmt.Errorf("dns: marshal question type: %w", err)
	}
	if err := b.WriteU16(q.Class); err != nil {
		return fmt.Errorf("dns: marshal question class: %w", err)
	}
	return nil
}

// ParseQuestion reads a Question from the buffer's current cursor.
func ParseQuestion(b *wire.Buffer) (Question, error) {
	name, err := b.ReadQName()
	if err != nil {
		return Question{}, fmt.Errorf("dns: parse question name: %w", err)
	}
	qtype, err := b.ReadU16()
	if err != nil {
		return Question{}, fmt.Errorf("dns: parse question type: %w", err)
	}
	class, err := b.ReadU16()
	if err != nil {
		return Question{}, fmt.Errorf("dns: parse question class: %w", err)
	}
	return Question{Name: name, Type: RecordType(qtype), Class: class}, nil
}

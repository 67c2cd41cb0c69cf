package agent

import (
	"context"
	"fmt"

	"github.com/kamir/recepbot/internal/taskboard"
)

// TaskRecord is the tracking card filed for a request. Creation returns no identity.
type TaskRecord struct {
	Title       string
	Description string
}

// TaskFiler performs exactly one task-creation call per CreateTask.
type TaskFiler interface {
	CreateTask(ctx context.Context, rec TaskRecord) error
}

// NewTaskRecord builds the card for a request from contact, answered with reply by persona.
func NewTaskRecord(contact, message, reply, persona string) TaskRecord {
	return TaskRecord{
		Title:       fmt.Sprintf("Nova Solicitação de %s", contact),
		Description: fmt.Sprintf("**Mensagem Recebida:**\n%s\n\n**Resposta do %s:**\n%s", message, persona, reply),
	}
}

// CardCreator is the task board operation BoardFiler needs.
type CardCreator interface {
	CreateCard(ctx context.Context, card taskboard.Card) error
}

// BoardFiler files TaskRecords as task board cards.
type BoardFiler struct {
	board CardCreator
}

// NewBoardFiler wraps a task board client.
func NewBoardFiler(board CardCreator) *BoardFiler {
	return &BoardFiler{board: board}
}

func (f *BoardFiler) CreateTask(ctx context.Context, rec TaskRecord) error {
	return f.board.CreateCard(ctx, taskboard.Card{Name: rec.Title, Description: rec.Description})
}

package coach

import (
	"context"
	"time"
)

// Technology is the subject area of a coaching chat. Values match the
// identifiers the service expects on the wire.
type Technology string

const (
	TechJava       Technology = "Java"
	TechNET        Technology = "NET"
	TechJavaScript Technology = "JavaScript"
	TechHTMLCSS    Technology = "HTMLandCSS"
	TechDocker     Technology = "Docker"
	TechCPlusPlus  Technology = "CPlusPlus"
	TechDevOps     Technology = "DevOps"
)

// Technologies lists every known Technology in display order.
var Technologies = []Technology{
	TechJava, TechNET, TechJavaScript, TechHTMLCSS, TechDocker, TechCPlusPlus, TechDevOps,
}

// Label returns the human-readable name.
func (t Technology) Label() string {
	switch t {
	case TechNET:
		return ".NET"
	case TechHTMLCSS:
		return "HTML & CSS"
	case TechCPlusPlus:
		return "C++"
	default:
		return string(t)
	}
}

// Known reports whether t is one of Technologies.
func (t Technology) Known() bool {
	for _, v := range Technologies {
		if v == t {
			return true
		}
	}
	return false
}

// Grade is the experience level a chat is pitched at.
type Grade string

const (
	GradeTrainee      Grade = "Trainee"
	GradeJunior       Grade = "Junior"
	GradeStrongJunior Grade = "StrongJunior"
	GradeMiddle       Grade = "Middle"
	GradeStrongMiddle Grade = "StrongMiddle"
	GradeSenior       Grade = "Senior"
)

// Grades lists every known Grade from least to most experienced.
var Grades = []Grade{
	GradeTrainee, GradeJunior, GradeStrongJunior, GradeMiddle, GradeStrongMiddle, GradeSenior,
}

// Label returns the human-readable name.
func (g Grade) Label() string {
	switch g {
	case GradeStrongJunior:
		return "Strong Junior"
	case GradeStrongMiddle:
		return "Strong Middle"
	default:
		return string(g)
	}
}

// Known reports whether g is one of Grades.
func (g Grade) Known() bool {
	for _, v := range Grades {
		if v == g {
			return true
		}
	}
	return false
}

// DefaultQuestionCount is the number of questions a new chat asks unless
// the user picks another.
const DefaultQuestionCount = 5

// ChatSession is a server-defined coaching conversation. It is read-only
// to the client once created.
type ChatSession struct {
	ID            string
	Name          string
	Technology    Technology
	Grade         Grade
	QuestionCount int
	CreatedAt     time.Time
}

// Title formats the chat for headers, e.g. "Prep - Java (Junior)".
func (c ChatSession) Title() string {
	return c.Name + " - " + c.Technology.Label() + " (" + c.Grade.Label() + ")"
}

// NewChat is a chat creation request. The client picks the ID.
type NewChat struct {
	ID            string
	Name          string
	Technology    Technology
	Grade         Grade
	QuestionCount int
}

// ChatService performs the authenticated chat calls.
type ChatService interface {
	Chats(ctx context.Context) ([]ChatSession, error)
	CreateChat(ctx context.Context, c NewChat) error
	Messages(ctx context.Context, chatID string) ([]Message, error)
	// SendMessage submits the user's utterance and returns the reply text.
	SendMessage(ctx context.Context, chatID, text string) (string, error)
}

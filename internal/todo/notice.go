package todo

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyText     = errors.New("task text is empty")
	ErrTaskNotFound  = errors.New("task not found")
	ErrBusy          = errors.New("task has a write in flight")
	ErrInvalidFilter = errors.New("invalid filter")
)

type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelDanger
)

// Notice is a transient, user-visible message.
type Notice struct {
	Level Level
	Text  string
}

var (
	noticeAdded     = Notice{Level: LevelInfo, Text: "Task added successfully!"}
	noticeDeleted   = Notice{Level: LevelWarning, Text: "Task deleted"}
	noticeAllDone   = Notice{Level: LevelSuccess, Text: "All tasks marked as done!"}
	noticeCleared   = Notice{Level: LevelDanger, Text: "All tasks cleared"}
	noticeCompleted = Notice{Level: LevelSuccess, Text: "All tasks completed! You crushed it!"}
	noticeEmptyText = Notice{Level: LevelWarning, Text: "Please enter a task"}
)

// NoticeFor turns a command error into the message shown to the user.
func NoticeFor(err error) Notice {
	switch {
	case errors.Is(err, ErrEmptyText):
		return noticeEmptyText
	case errors.Is(err, ErrBusy):
		return Notice{Level: LevelWarning, Text: "Still saving, try again in a moment"}
	}
	return Notice{Level: LevelDanger, Text: err.Error()}
}

func failedNotice(op string, err error) Notice {
	return Notice{Level: LevelDanger, Text: fmt.Sprintf("%s failed: %v", op, err)}
}

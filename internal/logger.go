package internal

import (
	"fmt"
	"jiorelay/entity"
	"jiorelay/services"
	"log"
	"time"
)

type Importance string

const (
	Debug   Importance = "."
	Info    Importance = " "
	Warning Importance = "?"
	Error   Importance = "!"
)

// Logger writes leveled lines to the standard log and, when a database is set,
// to the log collection. Database writes happen on a background writer.
type Logger struct {
	category  string
	debugMode bool
	database  services.Database
	writer    chan *entity.LogMessage
}

func NewLogger(category string, debugMode bool, database services.Database) *Logger {
	logger := &Logger{
		category:  category,
		debugMode: debugMode,
		database:  database,
	}
	if database != nil {
		logger.writer = make(chan *entity.LogMessage, 100)
		go logger.startWriter()
	}
	return logger
}

func (l *Logger) startWriter() {
	for message := range l.writer {
		if err := l.database.WriteLogMessage(message); err != nil {
			log.Printf("%s %s: write log to database failed: %v", Error, l.category, err)
		}
	}
}

func (l *Logger) Debug(text string) {
	if l.debugMode {
		l.logEvent(Debug, text)
	}
}

func (l *Logger) Info(text string) {
	l.logEvent(Info, text)
}

func (l *Logger) Warn(text string) {
	l.logEvent(Warning, text)
}

func (l *Logger) Error(text string, err error) {
	l.logEvent(Error, fmt.Sprintf("%s: %v", text, err))
}

func (l *Logger) logEvent(importance Importance, text string) {
	log.Printf("%s %s: %s", importance, l.category, text)
	if l.writer == nil || importance == Debug {
		return
	}
	now := time.Now()
	l.writer <- &entity.LogMessage{
		Time:       logTime(now),
		TimeStamp:  now.UTC(),
		Category:   l.category,
		Importance: string(importance),
		Text:       text,
	}
}

func logTime(t time.Time) string {
	return fmt.Sprintf("%d-%02d-%02d %02d:%02d:%02d", t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second())
}

package entity

import "time"

const LogMessageType = "logMessage"

type LogMessage struct {
	Time       string    `json:"time" bson:"time"`
	TimeStamp  time.Time `json:"timestamp" bson:"timestamp"`
	Category   string    `json:"category" bson:"category"`
	Importance string    `json:"importance" bson:"importance"`
	Text       string    `json:"text" bson:"text"`
}

func (m *LogMessage) DataType() string {
	return LogMessageType
}

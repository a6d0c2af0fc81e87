package services

// Database is the optional log sink; transaction state is never stored.
type Database interface {
	WriteLogMessage(data Data) error
}

type Data interface {
	DataType() string
}

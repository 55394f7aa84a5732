package domain

const (
	DefaultListenAddress              = "127.0.0.1:7466"
	DefaultObservabilityListenAddress = "0.0.0.0:9090"
	DefaultStoreFileName              = "directory.db"
)

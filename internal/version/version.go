package version

const (
	CLIName = "pharos-bot"
	Version = "0.2.0"
)

package util

import (
	"strings"

	"github.com/distproc/pstore/lib/backend"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig initializes configuration from .env files and environment
// variables. The format of the environment variables is PSTORE_<flag>
// (e.g. PSTORE_BACKEND=redis).
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("pstore")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// SetupBackendFlags adds the common backend connection flags to a command
func SetupBackendFlags(cmd *cobra.Command) {
	key := "backend"
	cmd.PersistentFlags().String(key, "memory", WrapString("The backend to connect to (memory, redis)"))

	key = "servers"
	cmd.PersistentFlags().String(key, "localhost", WrapString("Comma-separated list of backend servers. Each entry has the form host:port:password:timeoutSeconds:useTLS:caCertPath, where every field except host may be empty or omitted"))
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// GetBackend creates and connects the backend selected by configuration
func GetBackend() (backend.IBackend, error) {
	impl := backend.Implementation(viper.GetString("backend"))

	defaultPort := 0
	if impl == backend.ImplRedis {
		defaultPort = backend.DefaultRedisPort
	}

	cfg, err := backend.ParseServerList(viper.GetString("servers"), defaultPort)
	if err != nil {
		return nil, err
	}

	return backend.New(impl, cfg)
}

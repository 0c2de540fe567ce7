package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"qvox/internal/backend"
	"qvox/internal/config"
)

// Overridable for tests.
var (
	fnServe    = runServe
	fnGenerate = runGenerate
)

// buildRootCmdWith constructs the Cobra command tree bound to cfg.
func buildRootCmdWith(cfg *Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "qvox",
		Short:         "Supervise a local TTS backend and run generation tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfg.ConfigPath, "config", envStr("QVOX_CONFIG", ""), "Config file (.toml, .yaml, .json); defaults to the user config dir")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug|info|warn|error (defaults QVOX_LOG_LEVEL or the config file)")
	root.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: console|json")

	// serve
	var sopts serveOptions
	serveCmd := &cobra.Command{
		Use:     "serve",
		Short:   "Start the backend and expose the control API",
		Example: "  qvox serve --addr 127.0.0.1:8700\n  qvox serve --models base,custom_voice --device cuda",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fnServe(cmd.Context(), cfg, sopts)
		},
	}
	serveCmd.Flags().StringVar(&sopts.Addr, "addr", "", "Control API listen address (overrides api.addr)")
	serveCmd.Flags().BoolVar(&sopts.NoWatch, "no-watch", false, "Do not reload the config file on change")
	addServerFlags(serveCmd, &sopts.server)
	root.AddCommand(serveCmd)

	// generate group
	var gopts generateOptions
	genCmd := &cobra.Command{
		Use:   "generate",
		Short: "Run one generation against a freshly started backend and write the WAV",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("generate requires a mode: clone|upload|multi|design|custom")
		},
	}
	genCmd.PersistentFlags().StringVarP(&gopts.Output, "output", "o", "", "Output WAV path (default: <data dir>/output/<task id>.wav)")
	genCmd.PersistentFlags().StringVar(&gopts.Language, "language", backend.DefaultLanguage, "Language, or auto")
	genCmd.PersistentFlags().DurationVar(&gopts.Timeout, "timeout", 0, "Give up after this long (0 waits indefinitely)")
	addServerFlags(genCmd, &gopts.server)

	run := func(build func(args []string) (backend.GenerationRequest, error)) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			req, err := build(args)
			if err != nil {
				return &exitError{code: 2, err: err}
			}
			if _, err := backend.Normalize(req); err != nil {
				return &exitError{code: 2, err: err}
			}
			return fnGenerate(cmd.Context(), cfg, gopts, req)
		}
	}

	var refID, refText string
	cloneCmd := &cobra.Command{
		Use:     "clone <text>",
		Short:   "Clone a stored reference voice",
		Example: "  qvox generate clone --ref 3f2a... \"Hello there\"",
		Args:    cobra.ExactArgs(1),
		RunE: run(func(args []string) (backend.GenerationRequest, error) {
			return backend.CloneRequest{Text: args[0], RefAudioID: refID, RefText: refText, Language: gopts.Language}, nil
		}),
	}
	cloneCmd.Flags().StringVar(&refID, "ref", "", "Stored reference audio id")
	cloneCmd.Flags().StringVar(&refText, "ref-text", "", "Transcript of the reference audio")

	var audioPath, uploadRefText string
	uploadCmd := &cobra.Command{
		Use:     "upload <text>",
		Short:   "Clone the voice in a local WAV file",
		Example: "  qvox generate upload --audio me.wav \"Hello there\"",
		Args:    cobra.ExactArgs(1),
		RunE: run(func(args []string) (backend.GenerationRequest, error) {
			b, err := os.ReadFile(audioPath)
			if err != nil {
				return nil, fmt.Errorf("read reference audio: %w", err)
			}
			return backend.UploadCloneRequest{Audio: b, Filename: filepath.Base(audioPath), Text: args[0], RefText: uploadRefText, Language: gopts.Language}, nil
		}),
	}
	uploadCmd.Flags().StringVar(&audioPath, "audio", "", "Reference WAV file")
	uploadCmd.Flags().StringVar(&uploadRefText, "ref-text", "", "Transcript of the reference audio")

	var segments []string
	multiCmd := &cobra.Command{
		Use:     "multi",
		Short:   "Generate a multi-speaker dialogue",
		Example: "  qvox generate multi --segment alice-id=\"Hi Bob\" --segment bob-id=\"Hi Alice\"",
		Args:    cobra.NoArgs,
		RunE: run(func([]string) (backend.GenerationRequest, error) {
			segs, err := parseSegments(segments, gopts.Language)
			if err != nil {
				return nil, err
			}
			return backend.MultiSpeakerRequest{Segments: segs}, nil
		}),
	}
	multiCmd.Flags().StringArrayVar(&segments, "segment", nil, "Segment as <ref id>=<text>; repeat in speaking order")

	var designInstruct string
	designCmd := &cobra.Command{
		Use:     "design <text>",
		Short:   "Synthesize a voice from a description",
		Example: "  qvox generate design --instruct \"a calm, low narrator\" \"Once upon a time\"",
		Args:    cobra.ExactArgs(1),
		RunE: run(func(args []string) (backend.GenerationRequest, error) {
			return backend.VoiceDesignRequest{Text: args[0], Instruct: designInstruct, Language: gopts.Language}, nil
		}),
	}
	designCmd.Flags().StringVar(&designInstruct, "instruct", "", "Voice description")

	var speaker, customInstruct string
	customCmd := &cobra.Command{
		Use:     "custom <text>",
		Short:   "Use one of the backend's named speakers",
		Example: "  qvox generate custom --speaker Vivian \"Good morning\"",
		Args:    cobra.ExactArgs(1),
		RunE: run(func(args []string) (backend.GenerationRequest, error) {
			return backend.CustomVoiceRequest{Text: args[0], Speaker: speaker, Language: gopts.Language, Instruct: customInstruct}, nil
		}),
	}
	customCmd.Flags().StringVar(&speaker, "speaker", "", "Speaker: "+strings.Join(backend.SupportedSpeakers, ", "))
	customCmd.Flags().StringVar(&customInstruct, "instruct", "", "Optional style instruction")

	genCmd.AddCommand(cloneCmd, uploadCmd, multiCmd, designCmd, customCmd)
	root.AddCommand(genCmd)

	root.AddCommand(buildConfigCmd(cfg))

	// completion command
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(cmd.OutOrStdout()) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(cmd.OutOrStdout(), true) }})
	root.AddCommand(completionCmd)

	return root
}

// serverOverrides are the backend launch flags shared by serve and generate.
type serverOverrides struct {
	Port      int
	Models    string
	Device    string
	ModelSize string
	Python    string
	Script    string
}

func addServerFlags(cmd *cobra.Command, o *serverOverrides) {
	cmd.PersistentFlags().IntVar(&o.Port, "port", 0, "Backend port (overrides server.port)")
	cmd.PersistentFlags().StringVar(&o.Models, "models", "", "Comma-separated model list, e.g. base,custom_voice")
	cmd.PersistentFlags().StringVar(&o.Device, "device", "", "Device: auto|cuda|mps|cpu")
	cmd.PersistentFlags().StringVar(&o.ModelSize, "model-size", "", "Model size, e.g. 1.7B")
	cmd.PersistentFlags().StringVar(&o.Python, "python", "", "Run the backend script with this interpreter instead of uv")
	cmd.PersistentFlags().StringVar(&o.Script, "script", "", "Backend entry script")
}

// parseSegments turns "<ref id>=<text>" pairs into multi-speaker segments.
func parseSegments(in []string, language string) ([]backend.Segment, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("at least one --segment is required")
	}
	out := make([]backend.Segment, 0, len(in))
	for i, s := range in {
		ref, text, ok := strings.Cut(s, "=")
		ref, text = strings.TrimSpace(ref), strings.TrimSpace(text)
		if !ok || ref == "" || text == "" {
			return nil, fmt.Errorf("segment %d: want <ref id>=<text>, got %q", i+1, s)
		}
		out = append(out, backend.Segment{Text: text, RefAudioID: ref, Language: language})
	}
	return out, nil
}

// apply copies the flags that were given onto c.
func (o serverOverrides) apply(c *config.Config) {
	if o.Port != 0 {
		c.Server.Port = o.Port
	}
	if models := splitCSV(o.Models); len(models) > 0 {
		c.Server.Models = models
	}
	if o.Device != "" {
		c.Server.Device = o.Device
	}
	if o.ModelSize != "" {
		c.Server.ModelSize = o.ModelSize
	}
	if o.Python != "" {
		c.Server.Python = o.Python
	}
	if o.Script != "" {
		c.Server.ScriptPath = o.Script
	}
}

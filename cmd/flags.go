package main

import (
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/lanrat/passcracker/config"
	"github.com/lanrat/passcracker/sequence"
)

// jobFlags are the command line overrides for a job file. Only flags the
// user actually set replace job values.
type jobFlags struct {
	job          string
	alphabetType string
	charsets     string
	chars        string
	tokens       []string
	sequenceType string
	minLength    int
	maxLength    int
	startFrom    string
}

func (f *jobFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.job, "job", "j", "", "ini job file, flags override its values")
	fs.StringVar(&f.alphabetType, "alphabet-type", config.AlphabetCharacters, "alphabet type: characters or tokens")
	fs.StringVarP(&f.charsets, "charsets", "c", "", "character sets, a bit field or names like digits|latin")
	fs.StringVar(&f.chars, "chars", "", "additional characters")
	fs.StringSliceVarP(&f.tokens, "tokens", "t", nil, "tokens for the token alphabet, repeatable or comma separated")
	fs.StringVar(&f.sequenceType, "sequence-type", sequence.Simple.String(), "sequence type: simple or permutations")
	fs.IntVar(&f.minLength, "min-length", 1, "minimum password length")
	fs.IntVarP(&f.maxLength, "max-length", "m", 0, "maximum password length")
	fs.StringVarP(&f.startFrom, "start-from", "s", "", "checkpoint literal like [0,1] or a file holding one")
}

// resolve loads the job file, if any, and applies the changed flags on top.
func (f *jobFlags) resolve(fs *pflag.FlagSet) (*config.Job, error) {
	job := config.Default()
	if f.job != "" {
		var err error
		if job, err = config.Load(f.job); err != nil {
			return nil, err
		}
	}

	if fs.Changed("alphabet-type") {
		job.Alphabet.Type = strings.ToLower(f.alphabetType)
	}
	if fs.Changed("charsets") {
		classes, err := config.ParseClasses(f.charsets)
		if err != nil {
			return nil, err
		}
		job.Alphabet.CharacterSets = classes
	}
	if fs.Changed("chars") {
		job.Alphabet.AdditionalCharacters = f.chars
	}
	if fs.Changed("tokens") {
		job.Alphabet.Tokens = f.tokens
		// tokens only make sense for the token alphabet
		if !fs.Changed("alphabet-type") {
			job.Alphabet.Type = config.AlphabetTokens
		}
	}
	if fs.Changed("sequence-type") {
		policy, err := sequence.ParsePolicy(strings.ToLower(f.sequenceType))
		if err != nil {
			return nil, err
		}
		job.Sequence.Type = policy
	}
	if fs.Changed("min-length") {
		job.Sequence.MinLength = f.minLength
	}
	if fs.Changed("max-length") {
		job.Sequence.MaxLength = f.maxLength
	}
	if fs.Changed("start-from") {
		job.Sequence.StartFrom = f.startFrom
	}
	return job, nil
}

// searchFlags override the [Search] section of a job.
type searchFlags struct {
	workers            int
	queueCapacity      int
	progressInterval   time.Duration
	checkpointInterval time.Duration
	checkpoint         string
	progressLog        string
	rateLimit          float64
	grace              time.Duration
	metricsAddr        string
}

func (f *searchFlags) register(fs *pflag.FlagSet) {
	def := config.Default().Search
	fs.IntVarP(&f.workers, "workers", "w", 0, "concurrent oracle calls, 0 for NumCPU+1")
	fs.IntVar(&f.queueCapacity, "queue-capacity", def.QueueCapacity, "candidates buffered ahead of the workers")
	fs.DurationVar(&f.progressInterval, "progress-interval", def.ProgressInterval, "progress report interval")
	fs.DurationVar(&f.checkpointInterval, "checkpoint-interval", def.CheckpointInterval, "checkpoint save interval")
	fs.StringVar(&f.checkpoint, "checkpoint", "", "file the last tested candidate is saved to")
	fs.StringVar(&f.progressLog, "progress-log", "", "file progress lines are appended to")
	fs.Float64Var(&f.rateLimit, "rate-limit", 0, "maximum oracle calls per second, 0 for unlimited")
	fs.DurationVar(&f.grace, "grace", def.Grace, "shutdown grace period for every pipeline stage")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address, for example :9090")
}

func (f *searchFlags) apply(fs *pflag.FlagSet, c *config.SearchConfig) {
	if fs.Changed("workers") {
		c.Workers = f.workers
	}
	if fs.Changed("queue-capacity") {
		c.QueueCapacity = f.queueCapacity
	}
	if fs.Changed("progress-interval") {
		c.ProgressInterval = f.progressInterval
	}
	if fs.Changed("checkpoint-interval") {
		c.CheckpointInterval = f.checkpointInterval
	}
	if fs.Changed("checkpoint") {
		c.Checkpoint = f.checkpoint
	}
	if fs.Changed("progress-log") {
		c.ProgressLog = f.progressLog
	}
	if fs.Changed("rate-limit") {
		c.RateLimit = f.rateLimit
	}
	if fs.Changed("grace") {
		c.Grace = f.grace
	}
}

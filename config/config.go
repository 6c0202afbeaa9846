// Package config loads search jobs from ini files.
//
// A job file has up to three sections:
//
//	[Alphabet]
//	Type = characters
//	CharacterSets = digits|latin
//	AdditionalCharacters = _-
//
//	[Sequence]
//	Type = simple
//	MinLength = 1
//	MaxLength = 6
//	StartFrom = checkpoint.txt
//
//	[Search]
//	Workers = 8
//	Checkpoint = checkpoint.txt
//	CheckpointInterval = 1m
//
// Missing sections and keys keep their defaults.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/lanrat/passcracker/alphabet"
	"github.com/lanrat/passcracker/sequence"
)

// Alphabet types.
const (
	AlphabetCharacters = "characters"
	AlphabetTokens     = "tokens"
)

// Job is a fully resolved search job.
type Job struct {
	Alphabet AlphabetConfig
	Sequence SequenceConfig
	Search   SearchConfig
}

// AlphabetConfig selects and parameterizes the alphabet.
type AlphabetConfig struct {
	Type                 string
	CharacterSets        alphabet.Class
	AdditionalCharacters string
	Tokens               []string
}

// SequenceConfig selects the ordering policy and length bounds.
type SequenceConfig struct {
	Type      sequence.Policy
	MinLength int
	MaxLength int
	// StartFrom is a checkpoint literal or the path of a file holding one.
	StartFrom string
}

// SearchConfig tunes the search pipeline.
type SearchConfig struct {
	Workers            int
	QueueCapacity      int
	ProgressInterval   time.Duration
	CheckpointInterval time.Duration
	Checkpoint         string
	ProgressLog        string
	// RateLimit caps oracle calls per second, 0 means unlimited.
	RateLimit float64
	Grace     time.Duration
}

type alphabetIni struct {
	Type                 string
	CharacterSets        string
	AdditionalCharacters string
	Tokens               []string `ini:"Tokens,,allowshadow"`
}

func (a *alphabetIni) toConfig() (AlphabetConfig, error) {
	var c AlphabetConfig
	var err error
	c.Type = strings.ToLower(strings.TrimSpace(a.Type))
	c.CharacterSets, err = ParseClasses(a.CharacterSets)
	if err != nil {
		return c, err
	}
	c.AdditionalCharacters = a.AdditionalCharacters
	// repeated keys and comma separated lists may be mixed
	for _, value := range a.Tokens {
		for _, token := range strings.Split(value, ",") {
			if token = strings.TrimSpace(token); token != "" {
				c.Tokens = append(c.Tokens, token)
			}
		}
	}
	return c, nil
}

type sequenceIni struct {
	Type      string
	MinLength int
	MaxLength int
	StartFrom string
}

func (s *sequenceIni) toConfig() (SequenceConfig, error) {
	var c SequenceConfig
	var err error
	c.Type, err = sequence.ParsePolicy(strings.ToLower(strings.TrimSpace(s.Type)))
	if err != nil {
		return c, err
	}
	c.MinLength = s.MinLength
	c.MaxLength = s.MaxLength
	c.StartFrom = strings.TrimSpace(s.StartFrom)
	return c, nil
}

// Default returns a job with every optional setting at its default. The
// alphabet and the maximum length still have to be chosen.
func Default() *Job {
	return &Job{
		Alphabet: AlphabetConfig{
			Type: AlphabetCharacters,
		},
		Sequence: SequenceConfig{
			Type:      sequence.Simple,
			MinLength: 1,
		},
		Search: SearchConfig{
			QueueCapacity:      1024,
			ProgressInterval:   time.Second,
			CheckpointInterval: time.Minute,
			Grace:              5 * time.Second,
		},
	}
}

// Load reads the job file at path on top of the defaults.
func Load(path string) (*Job, error) {
	iniOpt := ini.LoadOptions{
		Insensitive:  true,
		AllowShadows: true,
	}
	iniCfg, err := ini.LoadSources(iniOpt, path)
	if err != nil {
		return nil, err
	}
	job := Default()

	if section, err := iniCfg.GetSection("Alphabet"); err == nil {
		alphabetCfg := &alphabetIni{
			Type: job.Alphabet.Type,
		}
		if err := section.MapTo(alphabetCfg); err != nil {
			return nil, fmt.Errorf("[Alphabet]: %w", err)
		}
		if job.Alphabet, err = alphabetCfg.toConfig(); err != nil {
			return nil, fmt.Errorf("[Alphabet]: %w", err)
		}
	}

	if section, err := iniCfg.GetSection("Sequence"); err == nil {
		sequenceCfg := &sequenceIni{
			Type:      job.Sequence.Type.String(),
			MinLength: job.Sequence.MinLength,
		}
		if err := section.MapTo(sequenceCfg); err != nil {
			return nil, fmt.Errorf("[Sequence]: %w", err)
		}
		if job.Sequence, err = sequenceCfg.toConfig(); err != nil {
			return nil, fmt.Errorf("[Sequence]: %w", err)
		}
	}

	if section, err := iniCfg.GetSection("Search"); err == nil {
		if err := section.MapTo(&job.Search); err != nil {
			return nil, fmt.Errorf("[Search]: %w", err)
		}
	}

	return job, nil
}

// Validate checks the settings that constructors cannot check on their own.
func (j *Job) Validate() error {
	var errs []error
	switch j.Alphabet.Type {
	case AlphabetCharacters:
		if j.Alphabet.CharacterSets == 0 && j.Alphabet.AdditionalCharacters == "" {
			errs = append(errs, errors.New("character alphabet needs character sets or additional characters"))
		}
	case AlphabetTokens:
		if len(j.Alphabet.Tokens) == 0 {
			errs = append(errs, errors.New("token alphabet needs tokens"))
		}
	default:
		errs = append(errs, fmt.Errorf("alphabet type %q is not supported", j.Alphabet.Type))
	}
	if j.Sequence.MinLength < 0 || j.Sequence.MaxLength < j.Sequence.MinLength {
		errs = append(errs, fmt.Errorf("%w: min %d, max %d", sequence.ErrLength, j.Sequence.MinLength, j.Sequence.MaxLength))
	}
	if j.Search.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", j.Search.Workers))
	}
	if j.Search.QueueCapacity < 0 {
		errs = append(errs, fmt.Errorf("queue capacity must not be negative, got %d", j.Search.QueueCapacity))
	}
	if j.Search.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate limit must not be negative, got %g", j.Search.RateLimit))
	}
	return errors.Join(errs...)
}

// BuildAlphabet constructs the configured alphabet.
func (j *Job) BuildAlphabet() (alphabet.Alphabet, error) {
	switch j.Alphabet.Type {
	case AlphabetCharacters:
		return alphabet.NewCharacters(j.Alphabet.CharacterSets, j.Alphabet.AdditionalCharacters)
	case AlphabetTokens:
		return alphabet.NewTokens(j.Alphabet.Tokens)
	default:
		return nil, fmt.Errorf("alphabet type %q is not supported", j.Alphabet.Type)
	}
}

// BuildSequence validates the job and constructs its sequence, resolving
// StartFrom when set.
func (j *Job) BuildSequence() (*sequence.Sequence, error) {
	if err := j.Validate(); err != nil {
		return nil, err
	}
	a, err := j.BuildAlphabet()
	if err != nil {
		return nil, err
	}
	var start sequence.Value
	if j.Sequence.StartFrom != "" {
		start, err = sequence.ReadStart(j.Sequence.StartFrom, j.Sequence.MaxLength)
		if err != nil {
			return nil, err
		}
	}
	return sequence.New(a, j.Sequence.Type, j.Sequence.MinLength, j.Sequence.MaxLength, start)
}

var classNames = map[string]alphabet.Class{
	"digits":   alphabet.Digits,
	"latin":    alphabet.Latin,
	"cyrillic": alphabet.Cyrillic,
	"special":  alphabet.Special,
	"space":    alphabet.Space,
	"tab":      alphabet.Tab,
	"all":      alphabet.AllClasses,
}

// ParseClasses parses character classes given either as the numeric bit
// field or as names joined by "|" or ",", for example "digits|latin".
func ParseClasses(s string) (alphabet.Class, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseUint(s, 0, 32); err == nil {
		if alphabet.Class(n)&^alphabet.AllClasses != 0 {
			return 0, fmt.Errorf("character sets %#x select unknown classes", n)
		}
		return alphabet.Class(n), nil
	}

	var classes alphabet.Class
	for _, name := range strings.FieldsFunc(s, func(r rune) bool { return r == '|' || r == ',' }) {
		class, ok := classNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return 0, fmt.Errorf("unknown character set %q", name)
		}
		classes |= class
	}
	return classes, nil
}

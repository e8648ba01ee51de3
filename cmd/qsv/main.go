// Command qsv runs SQL queries directly against CSV files named in the
// query's FROM clause, without a separate load step.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/csvql/qsv/filemime"
	"github.com/csvql/qsv/orchestrate"
)

// ArgsError is returned for CLI usage mistakes: missing required
// arguments, an unparseable delimiter, and the like.
type ArgsError struct {
	Msg string
}

func (e *ArgsError) Error() string { return e.Msg }

func main() {
	log := newLogger()
	defer log.Sync()

	var opts struct {
		Query    QueryCommand    `command:"query" description:"Run a SQL query against one or more CSV files"`
		Analyze  AnalyzeCommand  `command:"analyze" description:"Report the inferred column types for a query's source files"`
		Stat     StatCommand     `command:"stats" description:"Compute per-column statistics for a single CSV file"`
		FileType FileTypeCommand `command:"filetype" description:"Print the detected MIME type of a file"`
	}
	opts.Query.log = log
	opts.Analyze.log = log
	opts.Stat.log = log

	parser := flags.NewParser(&opts, flags.Default)
	parser.Name = "qsv"
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *zap.SugaredLogger {
	level := zapcore.WarnLevel
	if err := level.Set(strings.ToLower(os.Getenv("QSV_LOG"))); err != nil {
		level = zapcore.WarnLevel
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	return logger.Sugar()
}

func parseDelimiter(s string) (rune, error) {
	if s == "" {
		return ',', nil
	}
	runes := []rune(s)
	if len(runes) != 1 {
		return 0, &ArgsError{Msg: fmt.Sprintf("delimiter must be a single character, got %q", s)}
	}
	return runes[0], nil
}

func writeRows(headers []string, rows [][]string, withHeader bool) {
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	if withHeader {
		fmt.Fprintf(w, "%s\n", strings.Join(headers, ","))
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s\n", strings.Join(row, ","))
	}
}

// QueryCommand runs a SQL query against the CSV files it names.
type QueryCommand struct {
	log *zap.SugaredLogger

	Delimiter    string `short:"d" long:"delimiter" default:"," description:"Field delimiter"`
	Trim         bool   `long:"trim" description:"Trim whitespace from every field"`
	TextOnly     bool   `long:"textonly" description:"Treat every column as text, skipping type inference"`
	OutputHeader bool   `short:"o" long:"output-header" description:"Print a header row before the results"`
	Args         struct {
		Query string `positional-arg-name:"query"`
	} `positional-args:"yes" required:"yes"`
}

func (c *QueryCommand) Execute(args []string) error {
	delim, err := parseDelimiter(c.Delimiter)
	if err != nil {
		return err
	}
	opts := orchestrate.Options{Delimiter: delim, Trim: c.Trim, TextOnly: c.TextOnly}

	res, err := orchestrate.ExecuteQuery(context.Background(), c.log, c.Args.Query, opts)
	if err != nil {
		return err
	}
	writeRows(res.Headers, res.Rows, c.OutputHeader)
	return nil
}

// AnalyzeCommand reports the inferred column types of a query's source files.
type AnalyzeCommand struct {
	log *zap.SugaredLogger

	Delimiter string `short:"d" long:"delimiter" default:"," description:"Field delimiter"`
	Trim      bool   `long:"trim" description:"Trim whitespace from every field"`
	Args      struct {
		Query string `positional-arg-name:"query"`
	} `positional-args:"yes" required:"yes"`
}

func (c *AnalyzeCommand) Execute(args []string) error {
	delim, err := parseDelimiter(c.Delimiter)
	if err != nil {
		return err
	}
	opts := orchestrate.Options{Delimiter: delim, Trim: c.Trim}

	out, err := orchestrate.ExecuteAnalysis(c.log, c.Args.Query, opts)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

// StatCommand computes per-column statistics for a single file.
type StatCommand struct {
	log *zap.SugaredLogger

	Delimiter string `short:"d" long:"delimiter" default:"," description:"Field delimiter"`
	Trim      bool   `long:"trim" description:"Trim whitespace from every field"`
	TextOnly  bool   `long:"textonly" description:"Treat every column as text, skipping type inference"`
	Args      struct {
		Filename string `positional-arg-name:"filename"`
	} `positional-args:"yes" required:"yes"`
}

func (c *StatCommand) Execute(args []string) error {
	delim, err := parseDelimiter(c.Delimiter)
	if err != nil {
		return err
	}
	opts := orchestrate.Options{Delimiter: delim, Trim: c.Trim, TextOnly: c.TextOnly}

	results, err := orchestrate.ExecuteStatistics(c.log, c.Args.Filename, opts)
	if err != nil {
		return err
	}
	for _, s := range results {
		fmt.Print(s.String())
	}
	return nil
}

// FileTypeCommand prints the detected MIME type of a file.
type FileTypeCommand struct {
	Args struct {
		Filename string `positional-arg-name:"filename"`
	} `positional-args:"yes" required:"yes"`
}

func (c *FileTypeCommand) Execute(args []string) error {
	mime, err := filemime.Detect(c.Args.Filename)
	if err != nil {
		return err
	}
	fmt.Println(mime)
	return nil
}

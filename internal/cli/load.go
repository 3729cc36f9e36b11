package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/chorus-cloud/chorussearch/internal/domain"
)

var loadBatchSize int

var loadCmd = &cobra.Command{
	Use:   "load <glob>...",
	Short: "Bulk-ingest chorus JSON files into the search service",
	Long: `Load reads chorus JSON files matched by the given glob patterns and
posts them to the service's ingestion endpoint in batches. The business
identifier of each chorus is taken from the file name without its
extension.

Examples:
  chorusctl load "data/choruses/*.json"
  chorusctl load "exports/**/*.json" --batch-size 100`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLoad,
}

func init() {
	loadCmd.Flags().IntVar(&loadBatchSize, "batch-size", 50, "choruses per ingestion request")
	rootCmd.AddCommand(loadCmd)
}

// chorusFile is the on-disk export shape of a single chorus.
type chorusFile struct {
	ChorusText    string         `json:"chorusText"`
	Name          string         `json:"name"`
	Key           int            `json:"key"`
	Type          int            `json:"type"`
	TimeSignature int            `json:"timeSignature"`
	WordPositions map[string]any `json:"word_positions,omitempty"`
}

func runLoad(cmd *cobra.Command, args []string) error {
	if loadBatchSize <= 0 {
		return fmt.Errorf("batch-size must be positive, got %d", loadBatchSize)
	}

	var files []string
	for _, pattern := range args {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return fmt.Errorf("invalid glob %q: %w", pattern, err)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return fmt.Errorf("no files matched")
	}

	choruses := make([]domain.Chorus, 0, len(files))
	var skipped []string
	for _, path := range files {
		c, err := readChorusFile(path)
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		choruses = append(choruses, c)
	}
	if len(choruses) == 0 {
		return fmt.Errorf("no loadable choruses among %d files", len(files))
	}

	fmt.Printf("Loading %d choruses into %s...\n", len(choruses), serviceURL)

	bar := progressbar.NewOptions(len(choruses),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Ingesting"),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	client := &http.Client{Timeout: 5 * time.Minute}
	ingested := 0
	for i := 0; i < len(choruses); i += loadBatchSize {
		end := i + loadBatchSize
		if end > len(choruses) {
			end = len(choruses)
		}
		batch := choruses[i:end]

		n, err := postBatch(client, batch)
		if err != nil {
			return fmt.Errorf("batch starting at %s: %w", batch[0].ID, err)
		}
		ingested += n
		_ = bar.Set(end)
	}

	fmt.Printf("\nLoad complete:\n")
	fmt.Printf("  Files matched:  %d\n", len(files))
	fmt.Printf("  Ingested:       %d\n", ingested)
	if len(skipped) > 0 {
		fmt.Printf("\nSkipped:\n")
		for _, s := range skipped {
			fmt.Printf("  - %s\n", s)
		}
	}
	return nil
}

func readChorusFile(path string) (domain.Chorus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Chorus{}, err
	}

	var cf chorusFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return domain.Chorus{}, fmt.Errorf("parse: %w", err)
	}
	if strings.TrimSpace(cf.ChorusText) == "" {
		return domain.Chorus{}, fmt.Errorf("empty chorusText")
	}

	name := filepath.Base(path)
	id := strings.TrimSuffix(name, filepath.Ext(name))

	return domain.Chorus{
		ID:            id,
		Name:          cf.Name,
		Text:          cf.ChorusText,
		Key:           cf.Key,
		Type:          cf.Type,
		TimeSignature: cf.TimeSignature,
		WordPositions: cf.WordPositions,
	}, nil
}

func postBatch(client *http.Client, batch []domain.Chorus) (int, error) {
	body, err := json.Marshal(batch)
	if err != nil {
		return 0, fmt.Errorf("marshal: %w", err)
	}

	resp, err := client.Post(
		strings.TrimRight(serviceURL, "/")+"/add_documents",
		"application/json",
		bytes.NewReader(body),
	)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result struct {
		Ingested int `json:"ingested"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	return result.Ingested, nil
}

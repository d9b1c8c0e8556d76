// Package bankconv converts formatted question text into the JSON document
// the question repository loads. Input format:
//
//	## list1
//	1. Question text
//	   - Wrong option
//	   - Right option*
//
// A trailing asterisk marks the correct option. Questions before any list
// header land in the "questions" list.
package bankconv

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"quizhall/internal/domain"
)

const defaultListKey = "questions"

var (
	listPattern     = regexp.MustCompile(`^##\s*(.+)$`)
	questionPattern = regexp.MustCompile(`^(\d+)\.\s*(.+)$`)
	optionPattern   = regexp.MustCompile(`^-\s*(.+)$`)
)

// Summary reports what a conversion produced.
type Summary struct {
	Lists          int
	Questions      int
	MissingAnswers int
}

// Parse reads formatted questions and returns the bank they describe.
func Parse(r io.Reader) (domain.QuestionBank, error) {
	bank := domain.QuestionBank{Lists: make(map[string][]domain.Question)}
	currentList := ""
	var current *domain.Question

	flush := func() {
		if current == nil {
			return
		}
		if currentList == "" {
			currentList = defaultListKey
		}
		if _, ok := bank.Lists[currentList]; !ok {
			bank.Keys = append(bank.Keys, currentList)
		}
		bank.Lists[currentList] = append(bank.Lists[currentList], *current)
		current = nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if m := listPattern.FindStringSubmatch(line); m != nil {
			flush()
			currentList = strings.TrimSpace(m[1])
			continue
		}

		if m := questionPattern.FindStringSubmatch(line); m != nil {
			flush()
			number, err := strconv.Atoi(m[1])
			if err != nil {
				return domain.QuestionBank{}, fmt.Errorf("bad question number %q", m[1])
			}
			current = &domain.Question{
				Number:        number,
				Text:          strings.TrimSpace(m[2]),
				CorrectAnswer: -1,
			}
			continue
		}

		if m := optionPattern.FindStringSubmatch(line); m != nil && current != nil {
			option := strings.TrimSpace(m[1])
			if strings.HasSuffix(option, "*") {
				option = strings.TrimSpace(strings.TrimSuffix(option, "*"))
				current.CorrectAnswer = len(current.Options)
			}
			current.Options = append(current.Options, option)
		}
	}
	if err := scanner.Err(); err != nil {
		return domain.QuestionBank{}, err
	}
	flush()
	return bank, nil
}

// ConvertFile parses inputPath and writes the bank document to outputPath.
// Questions with no starred option keep correct_answer -1 and are reported
// in the summary; the repository rejects them at load, so the converter
// surfaces the count instead of silently dropping them.
func ConvertFile(inputPath, outputPath string) (Summary, error) {
	in, err := os.Open(inputPath)
	if err != nil {
		return Summary{}, fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	bank, err := Parse(in)
	if err != nil {
		return Summary{}, fmt.Errorf("parse %s: %w", inputPath, err)
	}

	summary := Summary{Lists: len(bank.Keys)}
	for _, key := range bank.Keys {
		for _, q := range bank.Lists[key] {
			summary.Questions++
			if q.CorrectAnswer < 0 {
				summary.MissingAnswers++
			}
		}
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return Summary{}, fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	if err := writeBank(out, bank); err != nil {
		return Summary{}, fmt.Errorf("write %s: %w", outputPath, err)
	}
	return summary, nil
}

// writeBank emits the lists in declaration order. A plain map marshal would
// reorder keys and break the stable all_questions concatenation.
func writeBank(w io.Writer, bank domain.QuestionBank) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("{\n"); err != nil {
		return err
	}
	for i, key := range bank.Keys {
		keyJSON, err := json.Marshal(key)
		if err != nil {
			return err
		}
		listJSON, err := json.MarshalIndent(bank.Lists[key], "   ", "   ")
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(bw, "   %s: %s", keyJSON, listJSON); err != nil {
			return err
		}
		if i < len(bank.Keys)-1 {
			if _, err := bw.WriteString(","); err != nil {
				return err
			}
		}
		if _, err := bw.WriteString("\n"); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString("}\n"); err != nil {
		return err
	}
	return bw.Flush()
}

// Package tracker implements Trackers, which track data over the
// episodes of a training session, and the reward log they save to.
package tracker

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	ts "github.com/gkotti4/UE5-ReinforcementLearning-AI/timestep"
)

// Interface Tracker keeps track of session data and saves the data
// when an episode has finished
type Tracker interface {
	Track(t ts.TimeStep)
	Save() error
}

// AppendData appends values to the log at filename, one value per
// line, creating the log if needed
func AppendData(filename string, values ...float64) error {
	file, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY,
		0644)
	if err != nil {
		return fmt.Errorf("appenddata: could not open log: %w", err)
	}

	w := bufio.NewWriter(file)
	for _, value := range values {
		fmt.Fprintf(w, "%v\n", value)
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("appenddata: could not write log: %w", err)
	}
	return file.Close()
}

// LoadData loads and returns every value in the log at filename. A
// missing log holds no data.
func LoadData(filename string) ([]float64, error) {
	file, err := os.Open(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return []float64{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("loaddata: could not open log: %w", err)
	}
	defer file.Close()

	data := []float64{}
	scanner := bufio.NewScanner(file)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		value, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("loaddata: line %v: %w", line, err)
		}
		data = append(data, value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("loaddata: %w", err)
	}

	return data, nil
}

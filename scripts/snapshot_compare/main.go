package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/whatif-grades-api/internal/models"
)

var percentPattern = regexp.MustCompile(`-?\d+(\.\d+)?`)

type envelope struct {
	Data  models.CourseView `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type mismatch struct {
	Level     string
	Name      string
	Displayed string
	Computed  string
	Method    models.GradingMethod
}

type comparison struct {
	File       string
	CourseID   string
	Status     int
	Duration   time.Duration
	Mismatches []mismatch
	Error      error
}

func main() {
	var (
		baseURL   string
		token     string
		dir       string
		timeout   time.Duration
		tolerance float64
	)

	flag.StringVar(&baseURL, "base", "http://localhost:8080/api/v1", "API base URL including prefix")
	flag.StringVar(&token, "token", os.Getenv("WHATIF_TOKEN"), "Bearer token")
	flag.StringVar(&dir, "snapshots", filepath.Join("scripts", "snapshot_compare", "snapshots"), "Directory of course snapshot JSON files")
	flag.DurationVar(&timeout, "timeout", 60*time.Second, "HTTP client timeout")
	flag.Float64Var(&tolerance, "tolerance", 0.01, "Allowed percent difference for the course total")
	flag.Parse()

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		log.Fatalf("failed to list snapshots: %v", err)
	}
	if len(files) == 0 {
		log.Fatalf("no snapshots found in %s", dir)
	}
	sort.Strings(files)

	client := &http.Client{Timeout: timeout}
	var (
		results []comparison
		failing int
	)
	for _, file := range files {
		res := compareSnapshot(client, baseURL, token, file, tolerance)
		if res.Error != nil || len(res.Mismatches) > 0 {
			failing++
		}
		results = append(results, res)
	}

	printReport(results)
	fmt.Printf("Snapshots: %d, failing: %d\n", len(results), failing)
	if failing > 0 {
		os.Exit(1)
	}
}

func compareSnapshot(client *http.Client, baseURL, token, file string, tolerance float64) comparison {
	res := comparison{File: filepath.Base(file)}

	raw, err := os.ReadFile(file)
	if err != nil {
		res.Error = err
		return res
	}
	var snapshot models.CourseSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		res.Error = fmt.Errorf("decode snapshot: %w", err)
		return res
	}
	res.CourseID = snapshot.Course.ID

	view, status, dur, err := loadCourse(client, baseURL, token, raw)
	res.Status = status
	res.Duration = dur
	if err != nil {
		res.Error = err
		return res
	}

	displayed := make(map[string]*string, len(snapshot.Categories))
	for _, cat := range snapshot.Categories {
		displayed[cat.ID] = cat.DisplayedGradeText
	}
	for _, period := range view.Periods {
		for _, cat := range period.Categories {
			if cat.GradingMethod != models.GradingMethodNoMatch {
				continue
			}
			res.Mismatches = append(res.Mismatches, mismatch{
				Level:     "category",
				Name:      cat.Name,
				Displayed: valueOr(displayed[cat.ID]),
				Computed:  cat.Percent,
				Method:    cat.GradingMethod,
			})
		}
	}

	if want, ok := firstNumber(valueOr(snapshot.Course.DisplayedGradeText)); ok {
		got, ok := firstNumber(view.Percent)
		if !ok || math.Abs(got-want) > tolerance {
			res.Mismatches = append(res.Mismatches, mismatch{
				Level:     "course",
				Name:      view.Name,
				Displayed: valueOr(snapshot.Course.DisplayedGradeText),
				Computed:  view.Percent,
			})
		}
	}

	return res
}

func loadCourse(client *http.Client, baseURL, token string, body []byte) (models.CourseView, int, time.Duration, error) {
	if client == nil {
		return models.CourseView{}, 0, 0, errors.New("nil client")
	}
	url := strings.TrimRight(baseURL, "/") + "/courses?wait=true"
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return models.CourseView{}, 0, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return models.CourseView{}, 0, 0, err
	}
	defer resp.Body.Close()
	dur := time.Since(start)

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.CourseView{}, resp.StatusCode, dur, fmt.Errorf("read body: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return models.CourseView{}, resp.StatusCode, dur, fmt.Errorf("decode response: %w", err)
	}
	if env.Error != nil {
		return models.CourseView{}, resp.StatusCode, dur, fmt.Errorf("%s: %s", env.Error.Code, env.Error.Message)
	}
	return env.Data, resp.StatusCode, dur, nil
}

func firstNumber(text string) (float64, bool) {
	match := percentPattern.FindString(text)
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(match, 64)
	return v, err == nil
}

func valueOr(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func printReport(results []comparison) {
	fmt.Println("Snapshot Compare Report")
	fmt.Println("=======================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if len(res.Mismatches) > 0 {
			status = "DIFF"
		}
		fmt.Printf("[%s] %s (course %s)\n", status, res.File, res.CourseID)
		fmt.Printf("  Status: %d (%s)\n", res.Status, res.Duration)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		for _, m := range res.Mismatches {
			fmt.Printf("  %s %q: displayed %q, computed %q", m.Level, m.Name, m.Displayed, m.Computed)
			if m.Method != "" {
				fmt.Printf(" [%s]", m.Method)
			}
			fmt.Println()
		}
	}
}

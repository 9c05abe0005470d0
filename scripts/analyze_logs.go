package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

type LogStats struct {
	TotalErrors           int
	LoginSuccess          int
	LoginFailures         int
	Registrations         int
	TransactionsCreated   int
	TransactionsConfirmed int
	TransactionsExpired   int
	QRFailures            map[string]int
	NotificationFailures  int
	RejectedCallbacks     int
	UserActivities        map[string]int
	ErrorPatterns         map[string]int
}

func newLogStats() *LogStats {
	return &LogStats{
		QRFailures:     make(map[string]int),
		UserActivities: make(map[string]int),
		ErrorPatterns:  make(map[string]int),
	}
}

var (
	loginOKRegex   = regexp.MustCompile(`User (\S+) logged in`)
	loginFailRegex = regexp.MustCompile(`Login attempt failed for (\S+):`)
	qrFailRegex    = regexp.MustCompile(`QR creation via (\S+) failed`)
	expiredRegex   = regexp.MustCompile(`Expired (\d+) unpaid transactions`)
	createdRegex   = regexp.MustCompile(`Transaction TRX\w+ created for member (\d+)`)
	logPrefixRegex = regexp.MustCompile(`^(INFO|ERROR|DEBUG): \S+ \S+ \S+: `)
)

func main() {
	logDir := flag.String("dir", "./logs", "directory holding the dated log files")
	date := flag.String("date", time.Now().Format("2006-01-02"), "day to analyse (YYYY-MM-DD)")
	flag.Parse()

	stats := newLogStats()
	if err := analyzeFile(filepath.Join(*logDir, fmt.Sprintf("error-%s.log", *date)), stats, analyzeErrorLine); err != nil {
		fmt.Printf("Error reading error log: %v\n", err)
	}
	if err := analyzeFile(filepath.Join(*logDir, fmt.Sprintf("info-%s.log", *date)), stats, analyzeInfoLine); err != nil {
		fmt.Printf("Error reading info log: %v\n", err)
	}

	printReport(os.Stdout, *date, stats)
}

func analyzeFile(path string, stats *LogStats, fn func(string, *LogStats)) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fn(scanner.Text(), stats)
	}
	return scanner.Err()
}

func analyzeErrorLine(line string, stats *LogStats) {
	// stack traces span several lines; only count the headers
	if !strings.HasPrefix(line, "ERROR:") {
		return
	}
	stats.TotalErrors++

	if m := loginFailRegex.FindStringSubmatch(line); m != nil {
		stats.LoginFailures++
		stats.UserActivities[m[1]]++
	}
	if m := qrFailRegex.FindStringSubmatch(line); m != nil {
		stats.QRFailures[m[1]]++
	}
	if strings.Contains(line, "delivery for") || strings.Contains(line, "Redelivery of notification") {
		stats.NotificationFailures++
	}
	if strings.Contains(line, "Rejected Xendit callback") {
		stats.RejectedCallbacks++
	}

	extractErrorPattern(line, stats)
}

func analyzeInfoLine(line string, stats *LogStats) {
	switch {
	case loginOKRegex.MatchString(line):
		stats.LoginSuccess++
		stats.UserActivities[loginOKRegex.FindStringSubmatch(line)[1]]++
	case strings.Contains(line, "created with role member"):
		stats.Registrations++
	case createdRegex.MatchString(line):
		stats.TransactionsCreated++
	case strings.Contains(line, "confirmed as paid"):
		stats.TransactionsConfirmed++
	}
	if m := expiredRegex.FindStringSubmatch(line); m != nil {
		var n int
		fmt.Sscanf(m[1], "%d", &n)
		stats.TransactionsExpired += n
	}
}

// extractErrorPattern keys an error line by its message with ids and codes blanked out
func extractErrorPattern(line string, stats *LogStats) {
	msg := logPrefixRegex.ReplaceAllString(line, "")
	if i := strings.Index(msg, ": "); i > 0 {
		msg = msg[:i]
	}
	msg = regexp.MustCompile(`TRX\w+|\d+`).ReplaceAllString(msg, "#")
	stats.ErrorPatterns[strings.TrimSpace(msg)]++
}

func printReport(w io.Writer, date string, stats *LogStats) {
	fmt.Fprintln(w, "\n=== GymEase Log Analysis Report ===")
	fmt.Fprintln(w, "Day:", date)

	fmt.Fprintln(w, "\n1. Authentication Statistics:")
	fmt.Fprintf(w, "   Successful Logins: %d\n", stats.LoginSuccess)
	fmt.Fprintf(w, "   Failed Logins: %d\n", stats.LoginFailures)
	fmt.Fprintf(w, "   New Members: %d\n", stats.Registrations)

	fmt.Fprintln(w, "\n2. Transactions:")
	fmt.Fprintf(w, "   Created: %d\n", stats.TransactionsCreated)
	fmt.Fprintf(w, "   Confirmed: %d\n", stats.TransactionsConfirmed)
	fmt.Fprintf(w, "   Expired: %d\n", stats.TransactionsExpired)

	fmt.Fprintln(w, "\n3. Providers:")
	for provider, n := range stats.QRFailures {
		fmt.Fprintf(w, "   QR failures (%s): %d\n", provider, n)
	}
	fmt.Fprintf(w, "   Notification failures: %d\n", stats.NotificationFailures)
	fmt.Fprintf(w, "   Rejected callbacks: %d\n", stats.RejectedCallbacks)

	fmt.Fprintln(w, "\n4. Error Statistics:")
	fmt.Fprintf(w, "   Total Errors: %d\n", stats.TotalErrors)

	fmt.Fprintln(w, "\n5. Most Active Users:")
	printTop(w, stats.UserActivities, 5, "activities")

	fmt.Fprintln(w, "\n6. Most Common Errors:")
	printTop(w, stats.ErrorPatterns, 5, "occurrences")
}

func printTop(w io.Writer, counts map[string]int, limit int, unit string) {
	type entry struct {
		key   string
		count int
	}

	var entries []entry
	for k, n := range counts {
		entries = append(entries, entry{k, n})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count == entries[j].count {
			return entries[i].key < entries[j].key
		}
		return entries[i].count > entries[j].count
	})

	for i, e := range entries {
		if i >= limit {
			break
		}
		fmt.Fprintf(w, "   %s: %d %s\n", e.key, e.count, unit)
	}
}

// Package statistics keeps running counts of admission decisions and
// periodically dumps them, most frequent first, to a stats file.
package statistics

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"
)

type DecisionRecord struct {
	Vhost     string
	Operation string
	Addr      string
	Permitted bool
	Reason    string
	Count     int
	LastSeen  time.Time
}

func (r *DecisionRecord) key() string {
	verdict := "permit"
	if !r.Permitted {
		verdict = "deny"
	}
	return fmt.Sprintf("%s|%s|%s|%s", r.Vhost, r.Operation, r.Addr, verdict)
}

type DecisionRecordList struct {
	recordAddChan chan *DecisionRecord
	records       map[string]*DecisionRecord
	mu            sync.RWMutex
	dumpFile      string
}

func NewDecisionRecordList(dumpFile string) *DecisionRecordList {
	return &DecisionRecordList{
		recordAddChan: make(chan *DecisionRecord, 500),
		records:       make(map[string]*DecisionRecord, 500),
		mu:            sync.RWMutex{},
		dumpFile:      dumpFile,
	}
}

func (l *DecisionRecordList) Run() {
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case record := <-l.recordAddChan:
				l.Add(record)
			case <-ticker.C:
				l.Dump()
			}
		}
	}()
}

// Record queues a decision without blocking the admission path; when the
// channel is full the record is dropped.
func (l *DecisionRecordList) Record(record *DecisionRecord) {
	select {
	case l.recordAddChan <- record:
	default:
	}
}

func (l *DecisionRecordList) Add(record *DecisionRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := record.key()
	if r, exists := l.records[key]; exists {
		r.Count++
		r.Reason = record.Reason
		r.LastSeen = record.LastSeen
	} else {
		if record.LastSeen.IsZero() {
			record.LastSeen = time.Now()
		}
		record.Count = 1
		l.records[key] = record
	}
}

// Snapshot returns a copy of all records sorted by count, descending.
func (l *DecisionRecordList) Snapshot() []DecisionRecord {
	l.mu.RLock()
	records := make([]DecisionRecord, 0, len(l.records))
	for _, r := range l.records {
		records = append(records, *r)
	}
	l.mu.RUnlock()

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Count > records[j].Count
	})
	return records
}

func (l *DecisionRecordList) Dump() {
	f, err := os.Create(l.dumpFile)
	if err != nil {
		slog.Error("os.Create", slog.Any("error", err))
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("os.File.Close", slog.Any("error", err))
		}
	}()

	w := bufio.NewWriter(f)
	defer func() {
		if err := w.Flush(); err != nil {
			slog.Error("bufio.Writer.Flush", slog.Any("error", err))
		}
	}()

	for _, record := range l.Snapshot() {
		verdict := "permit"
		if !record.Permitted {
			verdict = "deny"
		}
		_, err := fmt.Fprintf(w, "%s %s %s %s %d %s\n",
			record.Vhost, record.Operation, record.Addr, verdict, record.Count, record.Reason)
		if err != nil {
			slog.Error("Dump fmt.Fprintf", slog.Any("error", err))
		}
	}
}

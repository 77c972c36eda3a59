// Package monitoring serves the state of a running kernel over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/nsim/hooking"
	"github.com/sarchlab/nsim/kernel"
	"github.com/sarchlab/nsim/model"
	"github.com/sarchlab/nsim/simerr"
	"github.com/sarchlab/nsim/timing"
)

// A Target is the kernel a Monitor reports on.
type Target interface {
	hooking.Hookable

	Now() timing.Step
	Progress() (start, now, end timing.Step, running bool)
	Status() (kernel.Status, error)
	Nodes() ([]kernel.NodeInfo, error)
	GetStatus(id model.ID) (model.Params, error)
}

// Monitor turns a simulation into a server that reports its progress and
// state.
type Monitor struct {
	target     Target
	portNumber int
	profileFor time.Duration

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
	runBar           *ProgressBar
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{profileFor: time.Second}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterKernel registers the kernel to monitor. The monitor follows the
// kernel's Advance calls with a progress bar.
func (m *Monitor) RegisterKernel(t Target) {
	m.target = t
	t.AcceptHook(m)
}

// Func keeps the progress bar of the current Advance call up to date.
func (m *Monitor) Func(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case kernel.HookPosAdvanceStart:
		info := ctx.Item.(kernel.AdvanceInfo)
		m.runBar = m.CreateProgressBar(
			fmt.Sprintf("Advance %d-%d", info.From, info.To),
			uint64(info.To-info.From))
	case kernel.HookPosStep:
		if m.runBar != nil {
			m.runBar.IncrementFinished(1)
		}
	case kernel.HookPosAdvanceEnd:
		if m.runBar != nil {
			m.CompleteProgressBar(m.runBar)
			m.runBar = nil
		}
	}
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the list of shown bars.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			bars = append(bars, b)
		}
	}

	m.progressBars = bars
}

// Handler returns the HTTP routes of the monitor.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/status", m.status)
	r.HandleFunc("/api/nodes", m.listNodes)
	r.HandleFunc("/api/node/{id:[0-9]+}", m.nodeDetails)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)

	return r
}

// StartServer serves the monitor in the background and returns the address
// it listens on.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", err
	}

	addr := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", addr)

	server := &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := server.Serve(listener)
		if !errors.Is(err, http.ErrServerClosed) {
			dieOnErr(err)
		}
	}()

	return addr, nil
}

type nowRsp struct {
	Step    uint64 `json:"step"`
	Start   uint64 `json:"start"`
	End     uint64 `json:"end"`
	Running bool   `json:"running"`
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	start, now, end, running := m.target.Progress()

	writeJSON(w, nowRsp{
		Step:    uint64(now),
		Start:   uint64(start),
		End:     uint64(end),
		Running: running,
	})
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]ProgressView, len(m.progressBars))
	for i, b := range m.progressBars {
		bars[i] = b.Snapshot()
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
}

func (m *Monitor) status(w http.ResponseWriter, _ *http.Request) {
	status, err := m.target.Status()
	if writeErr(w, err) {
		return
	}

	writeJSON(w, status)
}

func (m *Monitor) listNodes(w http.ResponseWriter, _ *http.Request) {
	nodes, err := m.target.Nodes()
	if writeErr(w, err) {
		return
	}

	writeJSON(w, nodes)
}

type statusEntry struct {
	Key   string
	Value any
}

type nodeView struct {
	ID     uint64
	Status []statusEntry
}

func (m *Monitor) nodeDetails(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	params, err := m.target.GetStatus(model.ID(id))
	if writeErr(w, err) {
		return
	}

	view := nodeView{ID: id}
	for _, k := range params.Keys() {
		view.Status = append(view.Status, statusEntry{Key: k, Value: params[k]})
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(view)
	serializer.SetMaxDepth(3)
	err = serializer.Serialize(w)

	dieOnErr(err)
}

func writeErr(w http.ResponseWriter, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, simerr.ErrStateUnavailable):
		w.WriteHeader(http.StatusServiceUnavailable)
	case errors.Is(err, simerr.ErrUnknownNode):
		w.WriteHeader(http.StatusNotFound)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}

	fmt.Fprintf(w, "Error: %s", err)

	return true
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	dieOnErr(err)

	cpuPercent, err := proc.CPUPercent()
	dieOnErr(err)

	memory, err := proc.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memory.RSS,
	})
}

type profileEntry struct {
	Function string  `json:"function"`
	Flat     int64   `json:"flat"`
	Percent  float64 `json:"percent"`
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	time.Sleep(m.profileFor)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, summarizeProfile(prof))
}

// summarizeProfile sums the last sample value of each leaf function.
func summarizeProfile(prof *profile.Profile) []profileEntry {
	flat := make(map[string]int64)
	var total int64

	for _, s := range prof.Sample {
		if len(s.Value) == 0 || len(s.Location) == 0 {
			continue
		}

		v := s.Value[len(s.Value)-1]
		total += v

		name := "unknown"
		if lines := s.Location[0].Line; len(lines) > 0 && lines[0].Function != nil {
			name = lines[0].Function.Name
		}
		flat[name] += v
	}

	entries := make([]profileEntry, 0, len(flat))
	for name, v := range flat {
		e := profileEntry{Function: name, Flat: v}
		if total > 0 {
			e.Percent = 100 * float64(v) / float64(total)
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Flat != entries[j].Flat {
			return entries[i].Flat > entries[j].Flat
		}
		return entries[i].Function < entries[j].Function
	})

	return entries
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(data)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}

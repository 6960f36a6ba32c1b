// Package monitoring serves a running capture session over HTTP, so that it
// can be paused, inspected and profiled while it runs.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"reflect"
	"runtime/pprof"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unsafe"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/sirupsen/logrus"
	"github.com/syifan/goseth"

	"github.com/sarchlab/usbsniff/monitoring/web"
	"github.com/sarchlab/usbsniff/pipeline"
	"github.com/sarchlab/usbsniff/sim/hooking"
	"github.com/sarchlab/usbsniff/sim/id"
	"github.com/sarchlab/usbsniff/sim/modeling"
)

// Buffer is a queue whose fill level can be observed.
type Buffer interface {
	Len() int
	Capacity() int
}

type namedBuffer struct {
	name string
	buf  Buffer
}

// Monitor turns a capture session into a server. The session must be ticked
// through the monitor so that requests never observe a half-evaluated cycle.
type Monitor struct {
	logger     logrus.FieldLogger
	portNumber int

	lock   sync.Mutex
	resume *sync.Cond
	paused bool

	comp       *pipeline.Comp
	components []modeling.Clocked
	buffers    []namedBuffer
	tracer     *hooking.StateCycleTracer

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	server *http.Server
}

// NewMonitor creates a new Monitor.
func NewMonitor(logger logrus.FieldLogger) *Monitor {
	m := &Monitor{logger: logger}
	m.resume = sync.NewCond(&m.lock)

	return m
}

// WithPortNumber sets the port number of the monitor. Zero picks a free
// port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.logger.Warnf("port %d is not allowed for the monitor, "+
			"using a random port instead", portNumber)

		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterPipeline registers the session and all its components.
func (m *Monitor) RegisterPipeline(c *pipeline.Comp) {
	m.comp = c

	for _, comp := range c.Domain.Components() {
		m.RegisterComponent(comp)
	}
}

// RegisterComponent registers a component to be monitored.
func (m *Monitor) RegisterComponent(c modeling.Clocked) {
	m.components = append(m.components, c)
	m.registerBuffers(c.Name(), c)
}

var bufferType = reflect.TypeOf((*Buffer)(nil)).Elem()

func (m *Monitor) registerBuffers(name string, c any) {
	v := reflect.ValueOf(c)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return
	}

	v = v.Elem()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if field.Kind() != reflect.Ptr || field.IsNil() ||
			!field.Type().Implements(bufferType) {
			continue
		}

		ref := reflect.NewAt(
			field.Type(),
			unsafe.Pointer(field.UnsafeAddr()),
		).Elem().Interface().(Buffer)

		m.buffers = append(m.buffers, namedBuffer{
			name: name + "." + v.Type().Field(i).Name,
			buf:  ref,
		})
	}
}

// RegisterStateTracer makes the per-state cycle counts of the tracer
// available.
func (m *Monitor) RegisterStateTracer(t *hooking.StateCycleTracer) {
	m.tracer = t
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        id.Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the page.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Tick advances the session by one cycle, waiting first while the session
// is paused. It returns false once the session has ended.
func (m *Monitor) Tick() bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	for m.paused {
		m.resume.Wait()
	}

	return m.comp.Tick()
}

// Run starts the session and ticks it until it ends.
func (m *Monitor) Run() {
	m.lock.Lock()
	m.comp.Start()
	m.lock.Unlock()

	for m.Tick() {
	}
}

// Pause stops the session at the next cycle boundary.
func (m *Monitor) Pause() {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.paused = true
}

// Continue resumes a paused session.
func (m *Monitor) Continue() {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.paused = false
	m.resume.Broadcast()
}

// Router returns the handler of all the monitor routes.
func (m *Monitor) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseSession)
	r.HandleFunc("/api/continue", m.continueSession)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/counters", m.counters)
	r.HandleFunc("/api/list_components", m.listComponents)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/states/{name}", m.listStates)
	r.HandleFunc("/api/buffers", m.listBuffers)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts serving in the background and returns the URL of the
// monitor.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	m.logger.WithField("url", url).Info("monitoring session")

	m.server = &http.Server{
		Handler:           m.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.WithError(err).Error("monitor server stopped")
		}
	}()

	return url, nil
}

// OpenBrowser opens the monitor in the default browser.
func (m *Monitor) OpenBrowser(url string) {
	if err := browser.OpenURL(url); err != nil {
		m.logger.WithError(err).Warn("cannot open browser")
	}
}

// Shutdown stops the server.
func (m *Monitor) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func (m *Monitor) pauseSession(w http.ResponseWriter, _ *http.Request) {
	m.Pause()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) continueSession(w http.ResponseWriter, _ *http.Request) {
	m.Continue()
	w.WriteHeader(http.StatusOK)
}

type nowRsp struct {
	Cycle  uint64  `json:"cycle"`
	Now    float64 `json:"now"`
	Phase  string  `json:"phase"`
	Paused bool    `json:"paused"`
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	rsp := nowRsp{
		Cycle:  m.comp.Domain.Cycle(),
		Now:    float64(m.comp.Freq().TimeOfCycle(m.comp.Domain.Cycle())),
		Phase:  m.comp.Phase(),
		Paused: m.paused,
	}
	m.lock.Unlock()

	m.writeJSON(w, rsp)
}

func (m *Monitor) counters(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	c := m.comp.Counters()
	m.lock.Unlock()

	m.writeJSON(w, c)
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(m.components))
	for _, c := range m.components {
		names = append(names, c.Name())
	}

	m.writeJSON(w, names)
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	component := m.findComponentOr404(w, name)
	if component == nil {
		return
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)

	if err := serializer.Serialize(w); err != nil {
		m.fail(w, http.StatusInternalServerError, err)
	}
}

type fieldReq struct {
	CompName  string `json:"comp_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		m.fail(w, http.StatusBadRequest, err)
		return
	}

	component := m.findComponentOr404(w, req.CompName)
	if component == nil {
		return
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(component)
	serializer.SetMaxDepth(1)

	if err := serializer.SetEntryPoint(strings.Split(req.FieldName, ".")); err != nil {
		m.fail(w, http.StatusBadRequest, err)
		return
	}

	if err := serializer.Serialize(w); err != nil {
		m.fail(w, http.StatusInternalServerError, err)
	}
}

func (m *Monitor) listStates(w http.ResponseWriter, r *http.Request) {
	if m.tracer == nil {
		m.fail(w, http.StatusNotFound, errors.New("no state tracer"))
		return
	}

	m.lock.Lock()
	states := m.tracer.Snapshot(mux.Vars(r)["name"])
	m.lock.Unlock()

	m.writeJSON(w, states)
}

type bufferRsp struct {
	Buffer string `json:"buffer"`
	Level  int    `json:"level"`
	Cap    int    `json:"cap"`
}

func (m *Monitor) listBuffers(w http.ResponseWriter, r *http.Request) {
	sortMethod, limit, offset, err := buffersParseParams(r)
	if err != nil {
		m.fail(w, http.StatusBadRequest, err)
		return
	}

	m.lock.Lock()
	rsp := m.sortAndSelectBuffers(sortMethod, limit, offset)
	m.lock.Unlock()

	m.writeJSON(w, rsp)
}

func buffersParseParams(
	r *http.Request,
) (sortMethod string, limit, offset int, err error) {
	q := r.URL.Query()

	sortMethod = q.Get("sort")
	if sortMethod == "" {
		sortMethod = "percent"
	}

	if sortMethod != "level" && sortMethod != "percent" {
		return "", 0, 0, fmt.Errorf(
			"invalid sort method %q, allowed values are level and percent",
			sortMethod)
	}

	if s := q.Get("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil {
			return "", 0, 0, err
		}
	}

	if s := q.Get("offset"); s != "" {
		if offset, err = strconv.Atoi(s); err != nil {
			return "", 0, 0, err
		}
	}

	if limit < 0 || offset < 0 {
		return "", 0, 0, errors.New("negative limit or offset")
	}

	return sortMethod, limit, offset, nil
}

func bufferPercent(b bufferRsp) float64 {
	if b.Cap == 0 {
		return 0
	}

	return float64(b.Level) / float64(b.Cap)
}

func (m *Monitor) sortAndSelectBuffers(
	sortMethod string,
	limit, offset int,
) []bufferRsp {
	rsp := make([]bufferRsp, 0, len(m.buffers))
	for _, b := range m.buffers {
		rsp = append(rsp, bufferRsp{
			Buffer: b.name,
			Level:  b.buf.Len(),
			Cap:    b.buf.Capacity(),
		})
	}

	sort.SliceStable(rsp, func(i, j int) bool {
		li, lj := rsp[i].Level, rsp[j].Level
		pi, pj := bufferPercent(rsp[i]), bufferPercent(rsp[j])

		if sortMethod == "level" {
			if li != lj {
				return li > lj
			}

			return pi > pj
		}

		if pi != pj {
			return pi > pj
		}

		return li > lj
	})

	if offset > len(rsp) {
		offset = len(rsp)
	}

	rsp = rsp[offset:]

	if limit > 0 && limit < len(rsp) {
		rsp = rsp[:limit]
	}

	return rsp
}

func (m *Monitor) findComponentOr404(
	w http.ResponseWriter,
	name string,
) modeling.Clocked {
	for _, c := range m.components {
		if c.Name() == name {
			return c
		}
	}

	m.fail(w, http.StatusNotFound, fmt.Errorf("component %s not found", name))

	return nil
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.writeJSON(w, m.progressBars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}

	memInfo, err := proc.MemoryInfo()
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memInfo.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		m.fail(w, http.StatusConflict, err)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		m.fail(w, http.StatusInternalServerError, err)
		return
	}

	m.writeJSON(w, prof)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		m.logger.WithError(err).Warn("monitor response failed")
	}
}

func (m *Monitor) fail(w http.ResponseWriter, status int, err error) {
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, "Error: %s", err)
}

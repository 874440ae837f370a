package extension

import (
	"sync"
	"time"

	"github.com/flowscan/fetch"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	Success  = "success"
	NotFound = "notfound"
	Error    = "error"
)

// Collection of prometheus metrics
type StoreMetrics struct {
	AdditionalLabels        []string
	LoadTimeHistogram       *prometheus.HistogramVec
	LoadBatchHistogram      *prometheus.HistogramVec
	SetTimeHistogram        *prometheus.HistogramVec
	SetBatchHistogram       *prometheus.HistogramVec
	LayerLoadTimeHistogram  *prometheus.HistogramVec
	LayerLoadBatchHistogram *prometheus.HistogramVec
	LayerSetTimeHistogram   *prometheus.HistogramVec
	LayerSetBatchHistogram  *prometheus.HistogramVec
}

func labels(additionalLabels []string, names ...string) []string {
	result := make([]string, 0, len(additionalLabels)+len(names))
	result = append(result, additionalLabels...)
	return append(result, names...)
}

// Create a new store metric collector
// additionalLabels is a list of additional labels used for metric partitioning
func NewStoreMetrics(additionalLabels ...string) *StoreMetrics {
	c := &StoreMetrics{}
	c.AdditionalLabels = additionalLabels
	c.LoadTimeHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fetch",
		Name:      "load_time_seconds",
		Help:      "The time it takes to resolve a load request",
	}, labels(additionalLabels, "store", "status"))
	c.LoadBatchHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fetch",
		Name:      "load_batch",
		Help:      "The batch size for each load",
	}, labels(additionalLabels, "store"))
	c.LayerLoadTimeHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fetch",
		Subsystem: "layer",
		Name:      "load_time_seconds",
		Help:      "The time a layer takes to resolve a load request",
	}, labels(additionalLabels, "store", "layer", "status"))
	c.LayerLoadBatchHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fetch",
		Subsystem: "layer",
		Name:      "load_batch",
		Help:      "The batch size for each load on to a layer",
	}, labels(additionalLabels, "store", "layer"))
	c.SetTimeHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fetch",
		Name:      "set_time_seconds",
		Help:      "The time it takes to resolve a set request",
	}, labels(additionalLabels, "store", "status"))
	c.SetBatchHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fetch",
		Name:      "set_batch",
		Help:      "The batch size for each set",
	}, labels(additionalLabels, "store"))
	c.LayerSetTimeHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fetch",
		Subsystem: "layer",
		Name:      "set_time_seconds",
		Help:      "The time a layer takes to resolve a set request",
	}, labels(additionalLabels, "store", "layer", "status"))
	c.LayerSetBatchHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fetch",
		Subsystem: "layer",
		Name:      "set_batch",
		Help:      "The batch size for each set on to a layer",
	}, labels(additionalLabels, "store", "layer"))
	return c
}

// Collectors returns every histogram so they can be registered at once
func (c *StoreMetrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.LoadTimeHistogram,
		c.LoadBatchHistogram,
		c.SetTimeHistogram,
		c.SetBatchHistogram,
		c.LayerLoadTimeHistogram,
		c.LayerLoadBatchHistogram,
		c.LayerSetTimeHistogram,
		c.LayerSetBatchHistogram,
	}
}

// Register all histograms into the given registerer
func (c *StoreMetrics) Register(registerer prometheus.Registerer) error {
	for _, collector := range c.Collectors() {
		if err := registerer.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

// PrometheusMetrics is an extension for layer instrumentation
type PrometheusMetrics[TKey comparable, TValue any] struct {
	storeName          string
	metrics            *StoreMetrics
	labelValues        []string
	layerIdentifiers   []string
	layerLoadStartTime []map[uint64]time.Time
	layerLoadMu        []sync.Mutex
	layerSetStartTime  []map[uint64]time.Time
	layerSetMu         []sync.Mutex
	loadStartTime      map[uint64]time.Time
	setStartTime       map[uint64]time.Time
	loadMu             sync.Mutex
	setMu              sync.Mutex
}

// Create a new prometheus metrics extension with the given metrics collector
// labels is an optional parameter to add the given labels into the metrics from this store
func NewPrometheusMetrics[TKey comparable, TValue any](metrics *StoreMetrics, labelValues ...string) *PrometheusMetrics[TKey, TValue] {
	return &PrometheusMetrics[TKey, TValue]{
		labelValues: labelValues,
		metrics:     metrics,
	}
}

func (e *PrometheusMetrics[TKey, TValue]) Name() string { return "PrometheusMetrics" }

func (e *PrometheusMetrics[TKey, TValue]) InitializationHook(identifier string, layers []fetch.Layer[TKey, TValue]) error {
	e.storeName = identifier
	e.layerLoadStartTime = make([]map[uint64]time.Time, len(layers))
	e.layerSetStartTime = make([]map[uint64]time.Time, len(layers))
	e.layerLoadMu = make([]sync.Mutex, len(layers))
	e.layerSetMu = make([]sync.Mutex, len(layers))
	e.layerIdentifiers = make([]string, len(layers))
	e.loadStartTime = make(map[uint64]time.Time)
	e.setStartTime = make(map[uint64]time.Time)
	for i, layer := range layers {
		e.layerIdentifiers[i] = layer.Identifier()
		e.layerLoadStartTime[i] = make(map[uint64]time.Time)
		e.layerSetStartTime[i] = make(map[uint64]time.Time)
	}
	return nil
}

func (e *PrometheusMetrics[TKey, TValue]) values(names ...string) []string {
	return labels(e.labelValues, names...)
}

// status label for a key given the error reported for it
func loadStatus(err error) string {
	switch {
	case err == nil:
		return Success
	case fetch.IsKeyError(err):
		return NotFound
	default:
		return Error
	}
}

func errorAt(errors []error, i int) error {
	if i < len(errors) {
		return errors[i]
	}
	return nil
}

func (e *PrometheusMetrics[TKey, TValue]) PreLoadHook(traceID uint64, keys []TKey) []error {
	// record the batch size
	e.metrics.LoadBatchHistogram.WithLabelValues(e.values(e.storeName)...).Observe(float64(len(keys)))

	// record the start time for this trace
	e.loadMu.Lock()
	e.loadStartTime[traceID] = time.Now()
	e.loadMu.Unlock()
	return nil
}

func (e *PrometheusMetrics[TKey, TValue]) PostLoadHook(traceID uint64, keys []TKey, values []TValue, errors []error) {
	// record the duration of the trace
	e.loadMu.Lock()
	traceTime := time.Since(e.loadStartTime[traceID]).Seconds()
	delete(e.loadStartTime, traceID)
	e.loadMu.Unlock()

	// record the status and trace for each key
	for i := range keys {
		status := loadStatus(errorAt(errors, i))
		e.metrics.LoadTimeHistogram.WithLabelValues(e.values(e.storeName, status)...).Observe(traceTime)
	}
}

func (e *PrometheusMetrics[TKey, TValue]) PreSetHook(traceID uint64, keys []TKey, values []TValue) {
	// record the batch size
	e.metrics.SetBatchHistogram.WithLabelValues(e.values(e.storeName)...).Observe(float64(len(keys)))

	// record the start time for this trace
	e.setMu.Lock()
	e.setStartTime[traceID] = time.Now()
	e.setMu.Unlock()
}

func (e *PrometheusMetrics[TKey, TValue]) PostSetHook(traceID uint64, keys []TKey, values []TValue, errors [][]error) {
	// record the duration of the trace
	e.setMu.Lock()
	traceTime := time.Since(e.setStartTime[traceID]).Seconds()
	delete(e.setStartTime, traceID)
	e.setMu.Unlock()

	// a key fails the set if any of the layers failed it
	for i := range keys {
		status := Success
		for _, layerErrors := range errors {
			if errorAt(layerErrors, i) != nil {
				status = Error
				break
			}
		}
		e.metrics.SetTimeHistogram.WithLabelValues(e.values(e.storeName, status)...).Observe(traceTime)
	}
}

func (e *PrometheusMetrics[TKey, TValue]) LayerPreLoadHook(traceID uint64, layerIndex int, keys []TKey) {
	// record the batch size
	e.metrics.LayerLoadBatchHistogram.WithLabelValues(e.values(e.storeName, e.layerIdentifiers[layerIndex])...).Observe(float64(len(keys)))

	// record the start time for this trace
	e.layerLoadMu[layerIndex].Lock()
	e.layerLoadStartTime[layerIndex][traceID] = time.Now()
	e.layerLoadMu[layerIndex].Unlock()
}

func (e *PrometheusMetrics[TKey, TValue]) LayerPostLoadHook(traceID uint64, layerIndex int, keys []TKey, values []TValue, errors []error) {
	// record the duration of the trace
	e.layerLoadMu[layerIndex].Lock()
	traceTime := time.Since(e.layerLoadStartTime[layerIndex][traceID]).Seconds()
	delete(e.layerLoadStartTime[layerIndex], traceID)
	e.layerLoadMu[layerIndex].Unlock()

	// record the status and trace for each key
	for i := range keys {
		status := loadStatus(errorAt(errors, i))
		e.metrics.LayerLoadTimeHistogram.WithLabelValues(e.values(e.storeName, e.layerIdentifiers[layerIndex], status)...).Observe(traceTime)
	}
}

func (e *PrometheusMetrics[TKey, TValue]) LayerPreSetHook(traceID uint64, layerIndex int, keys []TKey, values []TValue) {
	// record the batch size
	e.metrics.LayerSetBatchHistogram.WithLabelValues(e.values(e.storeName, e.layerIdentifiers[layerIndex])...).Observe(float64(len(keys)))

	// record the start time for this trace
	e.layerSetMu[layerIndex].Lock()
	e.layerSetStartTime[layerIndex][traceID] = time.Now()
	e.layerSetMu[layerIndex].Unlock()
}

func (e *PrometheusMetrics[TKey, TValue]) LayerPostSetHook(traceID uint64, layerIndex int, keys []TKey, values []TValue, errors []error) {
	// record the duration of the trace
	e.layerSetMu[layerIndex].Lock()
	traceTime := time.Since(e.layerSetStartTime[layerIndex][traceID]).Seconds()
	delete(e.layerSetStartTime[layerIndex], traceID)
	e.layerSetMu[layerIndex].Unlock()

	// record the status and trace for each key
	for i := range keys {
		status := Success
		if errorAt(errors, i) != nil {
			status = Error
		}
		e.metrics.LayerSetTimeHistogram.WithLabelValues(e.values(e.storeName, e.layerIdentifiers[layerIndex], status)...).Observe(traceTime)
	}
}

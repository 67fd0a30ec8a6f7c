package core

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/quka-ai/ragstore/pkg/metrics"
)

type Metrics struct {
	apiResponseTime   *prometheus.HistogramVec
	apiErrorCounter   *prometheus.CounterVec
	pipelineDocuments *prometheus.CounterVec
	pipelineQueue     *prometheus.GaugeVec
	crawlPages        *prometheus.CounterVec
	extractTime       *prometheus.HistogramVec
}

func NewMetrics(ns, system string) *Metrics {
	// setup metric
	metrics.SetupMetricsManager(ns, system, prometheus.DefaultRegisterer.(*prometheus.Registry))

	m := &Metrics{
		apiResponseTime:   metrics.NewHistogramVec("api_response_time", []string{"api"}),
		apiErrorCounter:   metrics.NewCounterVec("api_error", []string{"method", "api", "status"}),
		pipelineDocuments: metrics.NewCounterVec("pipeline_documents", []string{"result"}),
		pipelineQueue:     metrics.NewGaugeVec("pipeline_queue_length", []string{"workspace"}),
		crawlPages:        metrics.NewCounterVec("crawl_pages", []string{"result"}),
		extractTime:       metrics.NewHistogramVec("extract_time", []string{"driver"}),
	}

	return m
}

func (m *Metrics) ApiErrorInc(method, api string, status int) {
	m.apiErrorCounter.WithLabelValues(method, api, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ApiResponseTimer(api string) *prometheus.Timer {
	return prometheus.NewTimer(m.apiResponseTime.WithLabelValues(api))
}

// PipelineDocumentInc counts finished documents by result (processed, failed, cancelled).
func (m *Metrics) PipelineDocumentInc(result string) {
	m.pipelineDocuments.WithLabelValues(result).Inc()
}

func (m *Metrics) PipelineQueueSet(workspace string, length int) {
	m.pipelineQueue.WithLabelValues(workspace).Set(float64(length))
}

func (m *Metrics) CrawlPageInc(result string) {
	m.crawlPages.WithLabelValues(result).Inc()
}

func (m *Metrics) ExtractTimer(driver string) *prometheus.Timer {
	return prometheus.NewTimer(m.extractTime.WithLabelValues(driver))
}

package websocket

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	errTypeLabel        = "error_type"
	publicEndpointLabel = "public_endpoint"
)

var (
	wsConnectedClients = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ws_connected_clients",
		Help: "The number of connected feed clients.",
	}, []string{publicEndpointLabel})

	wsSentStates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_sent_states",
		Help: "The number of session states sent to WebSocket connections.",
	}, []string{publicEndpointLabel})

	wsSentBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_sent_bytes",
		Help: "The number of bytes sent to WebSocket connections.",
	}, []string{publicEndpointLabel})

	wsDroppedStates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_dropped_states",
		Help: "The number of session states dropped because a client was too slow.",
	}, []string{publicEndpointLabel})

	wsSendError = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_send_errors",
		Help: "The errors that occured while serving a feed client.",
	}, []string{
		publicEndpointLabel,
		errTypeLabel,
	})
)

func instrumentConnect(publicEndpoint string) {
	wsConnectedClients.
		With(prometheus.Labels{publicEndpointLabel: publicEndpoint}).
		Inc()
}

func instrumentDisconnect(publicEndpoint string) {
	wsConnectedClients.
		With(prometheus.Labels{publicEndpointLabel: publicEndpoint}).
		Dec()
}

func instrumentSentState(publicEndpoint string, size int) {
	labels := prometheus.Labels{publicEndpointLabel: publicEndpoint}
	wsSentStates.With(labels).Inc()
	wsSentBytes.With(labels).Add(float64(size))
}

func instrumentDroppedState(publicEndpoint string) {
	wsDroppedStates.
		With(prometheus.Labels{publicEndpointLabel: publicEndpoint}).
		Inc()
}

func instrumentSendError(publicEndpoint string, err error) {
	wsSendError.
		With(prometheus.Labels{
			publicEndpointLabel: publicEndpoint,
			errTypeLabel:        errors.Type(err),
		}).
		Inc()
}

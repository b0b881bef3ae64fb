package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowseo_sessions_issued_total",
		Help: "Session tokens issued.",
	})

	sessionVerifyFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowseo_session_verify_failures_total",
		Help: "Session token verifications that failed (bad signature, malformed, or expired).",
	})

	encryptOps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowseo_encrypt_operations_total",
		Help: "API key encryption operations.",
	})

	decryptOps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowseo_decrypt_operations_total",
		Help: "API key decryption operations.",
	})

	decryptIntegrityFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowseo_decrypt_integrity_failures_total",
		Help: "Stored ciphertexts that failed authentication on decrypt.",
	})
)

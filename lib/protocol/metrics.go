// Copyright (C) 2026 The Landrop Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

package protocol

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricSentBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "landrop",
		Subsystem: "protocol",
		Name:      "sent_bytes_total",
		Help:      "Total amount of data sent",
	})
	metricSentMessages = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "landrop",
		Subsystem: "protocol",
		Name:      "sent_messages_total",
		Help:      "Total number of instructions sent",
	})

	metricRecvBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "landrop",
		Subsystem: "protocol",
		Name:      "recv_bytes_total",
		Help:      "Total amount of data received",
	})
	metricRecvMessages = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "landrop",
		Subsystem: "protocol",
		Name:      "recv_messages_total",
		Help:      "Total number of instructions received",
	})
)

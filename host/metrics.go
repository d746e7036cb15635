// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package host

import "github.com/multiversx/mx-delegation-sc-sub000/metrics"

var (
	metricInvocations = metrics.LazyLoadCounterVec("host_invocations_count", []string{"call", "status"})
	metricGasUsed     = metrics.LazyLoadHistogramVec("host_gas_used", []string{"call"}, metrics.BucketGas)
	metricDuration    = metrics.LazyLoadHistogram("host_invocation_duration_us", metrics.BucketDuration)
	metricOperation   = metrics.LazyLoadGauge("host_operation_in_progress")
	metricEvents      = metrics.LazyLoadCounterVec("host_events_count", []string{"kind"})
)

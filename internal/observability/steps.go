// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

// Step opens a debug step when the observer runs in debug mode. The
// returned function must always be called; it is a no-op otherwise.
func (o *StandardObserver) Step(component, step, filePath string) func(success bool, details string) {
	if o == nil || o.DebugObserver == nil {
		return func(bool, string) {}
	}
	return o.DebugObserver.StartStep(component, step, filePath)
}

// Detail forwards to the debug observer, if any
func (o *StandardObserver) Detail(component, detail string) {
	if o != nil && o.DebugObserver != nil {
		o.DebugObserver.LogDetail(component, detail)
	}
}

// Metric forwards to the debug observer, if any
func (o *StandardObserver) Metric(component, metric string, value interface{}) {
	if o != nil && o.DebugObserver != nil {
		o.DebugObserver.LogMetric(component, metric, value)
	}
}

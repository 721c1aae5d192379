// Copyright 2024 The sqlbridge author and other contributors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package monitor

// Strategy is the extension surface for specialized monitor modules.
// The worker loop is a fixed algorithm parameterized by these hooks;
// every hook has a usable default in Base.
type Strategy interface {
	// HasSufficientPermissions gates Start. Modules that need a
	// pre-flight query override this.
	HasSufficientPermissions(m *Monitor) bool

	// PreLoop runs on the worker goroutine before the first tick.
	PreLoop(m *Monitor)

	// PostLoop runs on the worker goroutine after the last tick.
	PostLoop(m *Monitor)

	// PreTick and PostTick bracket the probe pass of every tick.
	PreTick(m *Monitor)
	PostTick(m *Monitor)

	// UpdateServerStatus derives role bits (master/slave/synced) for a
	// record whose probe succeeded this tick.
	UpdateServerStatus(m *Monitor, r *Record)

	// ProcessStateChanges runs after the flush; the default classifies
	// transitions and dispatches reaction scripts.
	ProcessStateChanges(m *Monitor)

	// ImmediateTickRequired lets a module demand the next tick without
	// waiting out the interval.
	ImmediateTickRequired(m *Monitor) bool
}

// Base provides the default hook behavior. Specialized modules embed
// it and override selectively.
type Base struct{}

func (Base) HasSufficientPermissions(m *Monitor) bool {
	return true
}

func (Base) PreLoop(m *Monitor) {
	m.master = nil
	m.loadJournal()
}

func (Base) PostLoop(m *Monitor) {}

func (Base) PreTick(m *Monitor) {}

func (Base) PostTick(m *Monitor) {}

func (Base) UpdateServerStatus(m *Monitor, r *Record) {}

func (Base) ProcessStateChanges(m *Monitor) {
	m.detectHandleStateChanges()
}

func (Base) ImmediateTickRequired(m *Monitor) bool {
	return false
}

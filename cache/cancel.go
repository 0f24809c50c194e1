// Copyright 2020-2021 Dolthub, Inc.
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

package cache

import (
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/execctx"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/rolaperr"
	"github.com/eclipse-daanse/org.eclipse.daanse.rolap-sub000/segment"
)

type cancelCmd struct {
	execID execctx.ID
	reply  chan int
}

func (c *cancelCmd) run(m *Manager) {
	removed := 0
	for _, idx := range m.index {
		for hv, s := range idx {
			if _, ok := s.waiters[c.execID]; !ok {
				continue
			}
			delete(s.waiters, c.execID)
			if s.seg.State != segment.Loading || len(s.waiters) > 0 {
				continue
			}
			for _, stmt := range s.stmts {
				_ = stmt.Cancel()
			}
			resolveFailed(s, rolaperr.ExecutionCancelled.New("execution cancelled"))
			delete(idx, hv)
			removed++
		}
	}
	c.reply <- removed
}

// CancelExecution implements spec.md §4.5's CancelExecution command: it
// removes execID from every slot's waiter set, and for any LOADING slot
// that drops to zero waiters, cancels its registered SQL statements and
// removes the slot entirely. Returns the number of slots removed this
// way.
func (m *Manager) CancelExecution(execID execctx.ID) int {
	reply := make(chan int, 1)
	m.send(&cancelCmd{execID: execID, reply: reply})
	select {
	case r := <-reply:
		return r
	case <-m.stopped:
		return 0
	}
}

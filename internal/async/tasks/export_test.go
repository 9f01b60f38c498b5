package tasks

import "time"

func (f *FlowSync) SetNow(now func() time.Time) {
	f.now = now
}

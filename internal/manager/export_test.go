package manager

import "time"

func (m *SubmissionManager) SetNow(now func() time.Time) {
	m.now = now
}

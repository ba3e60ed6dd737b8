package game

import "time"

// ReleaseDueOrders moves pending orders whose arrival time has elapsed into
// the open order set, at most max per call to bound broadcast size. It is
// idempotent: once every qualifying order has moved, further calls release
// nothing.
func (s *Session) ReleaseDueOrders(now time.Time, max int) []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseRound || s.round != OrdersRound || s.roundStart.IsZero() {
		return nil
	}

	elapsed := now.Sub(s.roundStart)
	var released []Order
	remaining := s.pendingOrders[:0]
	for _, order := range s.pendingOrders {
		if order.ArrivalTime <= elapsed && (max <= 0 || len(released) < max) {
			released = append(released, order)
		} else {
			remaining = append(remaining, order)
		}
	}
	s.pendingOrders = remaining
	s.openOrders = append(s.openOrders, released...)
	return released
}

// NextOrderDue returns how long until the earliest pending order arrives.
// ok is false when nothing is pending or the session is not in round-3 play.
// The wait may be negative if orders are already overdue.
func (s *Session) NextOrderDue(now time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseRound || s.round != OrdersRound || len(s.pendingOrders) == 0 {
		return 0, false
	}
	earliest := s.pendingOrders[0].ArrivalTime
	for _, order := range s.pendingOrders[1:] {
		if order.ArrivalTime < earliest {
			earliest = order.ArrivalTime
		}
	}
	return s.roundStart.Add(earliest).Sub(now), true
}

// OpenOrderCount returns the number of orders currently eligible for
// matching.
func (s *Session) OpenOrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.openOrders)
}

// PendingOrderCount returns the number of orders not yet released.
func (s *Session) PendingOrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pendingOrders)
}

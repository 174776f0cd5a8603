package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/device"
	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/session"
	"github.com/bondar-aleksandr/cisco_fleet_admin/internal/transport"
)

func TestRecureTerminatesWhenAllPass(t *testing.T) {
	connector := &MockConnector{}
	devices := fleet(4)
	s := newSession(t, connector, devices, 2)

	var seen []session.Progress
	err := s.Recure(context.Background(), func(p session.Progress) { seen = append(seen, p) })
	require.NoError(t, err)

	require.Len(t, seen, 1, "a fully passing fleet converges in one pass")
	assert.Equal(t, session.Progress{Pass: 0, Remaining: 4, Total: 4}, seen[0])
	assert.Len(t, connector.Hosts(), 4)
}

func TestRecureExcludesPassedDevices(t *testing.T) {
	// host .2 refuses twice (ssh attempt only: nxos has no failover
	// partner), then starts passing on the third pass
	failures := map[string]int{"10.0.0.2": 2}
	connector := &MockConnector{dial: func(p transport.Params) (transport.Conn, error) {
		if failures[p.Host] > 0 {
			failures[p.Host]--
			return nil, &transport.ConnectError{Kind: transport.KindRefused, Err: errors.New("connection refused")}
		}
		return MockConn{}, nil
	}}
	devices := fleet(3)
	s := newSession(t, connector, devices, 3)

	err := s.Recure(context.Background(), nil)
	require.NoError(t, err)

	for _, d := range devices {
		assert.Equal(t, device.FlagPass, d.Outcome.Flag, d.ID)
	}
	// pass 0 touches all three devices, passes 1 and 2 only retry host .2
	hosts := connector.Hosts()
	assert.Len(t, hosts, 5)
	count := 0
	for _, h := range hosts {
		if h == "10.0.0.2" {
			count++
		}
	}
	assert.Equal(t, 3, count)
}

func TestRecureNeverSelfTerminatesOnPersistentFailure(t *testing.T) {
	passes := make(chan int, 64)
	connector := &MockConnector{dial: func(p transport.Params) (transport.Conn, error) {
		return nil, &transport.ConnectError{Kind: transport.KindAuthentication, Err: errors.New("login rejected")}
	}}
	devices := fleet(2)
	s := newSession(t, connector, devices, 2)

	done := make(chan error, 1)
	go func() {
		done <- s.Recure(context.Background(), func(p session.Progress) {
			select {
			case passes <- p.Pass:
			default:
			}
		})
	}()

	// wait until the loop demonstrably keeps retrying the hopeless fleet
	deadline := time.After(5 * time.Second)
	for {
		select {
		case pass := <-passes:
			if pass >= 3 {
				s.Stop()
				select {
				case err := <-done:
					require.NoError(t, err)
					for _, d := range devices {
						assert.Equal(t, device.FlagError, d.Outcome.Flag)
						assert.Equal(t, device.ReasonAuthentication, d.Outcome.Reason)
					}
					return
				case <-deadline:
					t.Fatal("recure did not stop after Stop()")
				}
			}
		case <-done:
			t.Fatal("recure terminated on its own with a permanently failing fleet")
		case <-deadline:
			t.Fatal("recure made no progress")
		}
	}
}

func TestRecureRejectsRenderMode(t *testing.T) {
	devices := fleet(1)
	s, err := session.New(session.Config{Mode: device.ModeRenderOnly}, devices)
	require.NoError(t, err)
	assert.ErrorIs(t, s.Recure(context.Background(), nil), session.ErrInvalidMode)
}

func TestRecureStopsBetweenPassesOnContextCancel(t *testing.T) {
	connector := &MockConnector{dial: func(p transport.Params) (transport.Conn, error) {
		return nil, &transport.ConnectError{Kind: transport.KindTimeout, Err: errors.New("i/o timeout")}
	}}
	devices := fleet(1)
	s := newSession(t, connector, devices, 1)

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.Recure(ctx, func(session.Progress) {
			select {
			case <-started:
			default:
				close(started)
			}
		})
	}()
	<-started
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("recure did not observe context cancellation")
	}
}

// ReadCircle Recommender - Book Club Recommendation Engine
// Copyright 2026 ReadCircle Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/readcircle/recommender

package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeTrainable struct {
	trains   atomic.Int32
	restores atomic.Int32
	err      error
}

func (f *fakeTrainable) Train(context.Context) error {
	f.trains.Add(1)
	return f.err
}

func (f *fakeTrainable) LoadOrTrain(context.Context) error {
	f.restores.Add(1)
	return f.err
}

func TestTrainerTrainsOnStartup(t *testing.T) {
	fake := &fakeTrainable{}
	trainer := NewTrainer(fake, TrainerConfig{
		TrainOnStartup: true,
		TrainInterval:  time.Hour,
	}, zerolog.New(io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- trainer.Serve(ctx) }()

	deadline := time.After(2 * time.Second)
	for fake.restores.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("startup training never ran")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve returned %v, want context.Canceled", err)
	}

	if fake.trains.Load() != 0 {
		t.Error("scheduled retrain ran before the interval elapsed")
	}
}

func TestTrainerPeriodicRetrain(t *testing.T) {
	fake := &fakeTrainable{}
	trainer := NewTrainer(fake, TrainerConfig{
		TrainOnStartup: false,
		TrainInterval:  20 * time.Millisecond,
	}, zerolog.New(io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- trainer.Serve(ctx) }()

	deadline := time.After(2 * time.Second)
	for fake.trains.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("periodic retraining never ran twice")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done

	if fake.restores.Load() != 0 {
		t.Error("startup restore ran although disabled")
	}
}

func TestTrainerSurvivesTrainingFailure(t *testing.T) {
	fake := &fakeTrainable{err: errors.New("source offline")}
	trainer := NewTrainer(fake, TrainerConfig{
		TrainOnStartup: true,
		TrainInterval:  20 * time.Millisecond,
	}, zerolog.New(io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- trainer.Serve(ctx) }()

	deadline := time.After(2 * time.Second)
	for fake.trains.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("trainer stopped retrying after a failure")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestLoadMembershipCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clubs.csv")
	data := "club_id,user_id\nclassics,u1\nclassics,u3\nscifi,u2\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	members, err := LoadMembershipCSV(path)
	if err != nil {
		t.Fatalf("LoadMembershipCSV: %v", err)
	}

	got, err := members.Members(context.Background(), "classics")
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(got) != 2 || got[0] != "u1" || got[1] != "u3" {
		t.Errorf("classics members = %v, want [u1 u3]", got)
	}

	empty, err := members.Members(context.Background(), "unknown")
	if err != nil {
		t.Fatalf("Members(unknown): %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("unknown club members = %v, want empty", empty)
	}
}

func TestLoadMembershipCSVBadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clubs.csv")
	if err := os.WriteFile(path, []byte("a,b\nx,y\n"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if _, err := LoadMembershipCSV(path); err == nil {
		t.Error("bad header accepted")
	}
}

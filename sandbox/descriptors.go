// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sandbox

import (
	"errors"
	"fmt"
	"os"
	"path"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/bldroot/lib/paths"
	"github.com/bureau-foundation/bldroot/lib/sealed"
	"github.com/bureau-foundation/bldroot/lib/secret"
)

// firstExtraDescriptor is the child descriptor number of ExtraFiles[0].
const firstExtraDescriptor = 3

// descriptorSet owns the descriptors handed to one child process. Every
// file registered with it is closed by Close, whatever happened in
// between, and every pipe writer has finished when Close returns.
type descriptorSet struct {
	files   []*os.File
	dests   []string
	writers sync.WaitGroup

	mu        sync.Mutex
	writeErrs []error
}

// addFile registers an open file to be exposed at dest. Ownership of
// file passes to the set.
func (d *descriptorSet) addFile(file *os.File, dest string) {
	d.files = append(d.files, file)
	d.dests = append(d.dests, dest)
}

// addBuffer exposes the contents of buffer at dest through an anonymous
// pipe. Ownership of buffer passes to the set; it is closed once fully
// written or once the reader goes away.
func (d *descriptorSet) addBuffer(buffer *secret.Buffer, dest string) error {
	var pipe [2]int
	if err := unix.Pipe2(pipe[:], unix.O_CLOEXEC); err != nil {
		buffer.Close()
		return fmt.Errorf("creating pipe for %s: %w", dest, err)
	}
	reader := os.NewFile(uintptr(pipe[0]), "pipe:"+dest)
	writer := os.NewFile(uintptr(pipe[1]), "pipe:"+dest)

	d.addFile(reader, dest)

	d.writers.Add(1)
	go func() {
		defer d.writers.Done()
		defer buffer.Close()
		_, err := buffer.WriteTo(writer)
		if closeErr := writer.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			d.mu.Lock()
			d.writeErrs = append(d.writeErrs, fmt.Errorf("writing %s: %w", dest, err))
			d.mu.Unlock()
		}
	}()
	return nil
}

// addSigningKey exposes the key at keyPath as /tmp/<name>. Sealed keys
// are decrypted with the age identity at identityPath.
func (d *descriptorSet) addSigningKey(keyPath, identityPath string) error {
	dest := path.Join(paths.MountSecretPrefix, sealed.KeyName(keyPath))

	if sealed.IsSealed(keyPath) {
		buffer, err := sealed.DecryptFile(keyPath, identityPath)
		if err != nil {
			return err
		}
		return d.addBuffer(buffer, dest)
	}

	file, err := os.Open(keyPath)
	if err != nil {
		return fmt.Errorf("opening signing key: %w", err)
	}
	d.addFile(file, dest)
	return nil
}

// addWrapper exposes body at the fixed wrapper path.
func (d *descriptorSet) addWrapper(body string) error {
	buffer, err := secret.NewFromString(body)
	if err != nil {
		return fmt.Errorf("buffering wrapper script: %w", err)
	}
	return d.addBuffer(buffer, paths.MountWrapper)
}

// extraFiles returns the files for exec.Cmd.ExtraFiles.
func (d *descriptorSet) extraFiles() []*os.File {
	return d.files
}

// dataFiles returns the bind list in child descriptor numbers.
func (d *descriptorSet) dataFiles() []DataFile {
	data := make([]DataFile, len(d.dests))
	for index, dest := range d.dests {
		data[index] = DataFile{Descriptor: firstExtraDescriptor + index, Dest: dest}
	}
	return data
}

// Close closes every registered file and waits for pipe writers.
// Closing the read ends first lets a writer blocked on a full pipe fail
// with EPIPE instead of hanging when the child never read its data.
// Write errors after the child exited are expected and only reported
// by writeErrors.
func (d *descriptorSet) Close() error {
	var errs []error
	for _, file := range d.files {
		if err := file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
	}
	d.files = nil
	d.writers.Wait()
	return errors.Join(errs...)
}

// writeErrors returns pipe write failures. Valid only after Close.
func (d *descriptorSet) writeErrors() []error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writeErrs
}

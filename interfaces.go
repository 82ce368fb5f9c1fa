package blkback

import "github.com/behrlich/go-blkback/internal/collab"

// These are type aliases over internal/collab's interfaces and structs: the
// request-processing core (internal/engine, internal/translate,
// internal/grant) depends on collab directly so it never imports this root
// package, avoiding an import cycle. The root package is where callers
// actually implement and consume these types, so they are aliased here
// rather than redeclared, keeping one definition instead of two
// structurally-identical ones.

// Protection is the memory-protection mode requested for a grant mapping.
type Protection = collab.Protection

const (
	ProtWrite = collab.ProtWrite
	ProtRead  = collab.ProtRead
)

// Region is a contiguous host-side mapping of one or more guest grant
// references.
type Region = collab.Region

// GrantHypervisor is the downward hypervisor binding for the grant-table
// mechanism. Implementations are supplied by the caller at attach time.
type GrantHypervisor = collab.GrantHypervisor

// EventChannel is the downward hypervisor binding used to wake the guest
// after responses are published.
type EventChannel = collab.EventChannel

// Descriptor is the I/O descriptor the Request Translator hands to the
// image subsystem.
type Descriptor = collab.Descriptor

// IOVec is one coalesced run within a bounce buffer.
type IOVec = collab.IOVec

// CompletionFunc is the signature the image subsystem calls back with.
type CompletionFunc = collab.CompletionFunc

// ImageSubsystem is the upward collaborator that performs the actual I/O
// against the host-side disk image.
type ImageSubsystem = collab.ImageSubsystem

// Logger is the ambient logging seam implementations may supply; satisfied
// by *internal/logging.Logger and by any other Printf/Debugf-shaped logger.
type Logger = collab.Logger

// Observer is the ambient metrics-collection seam; Stats implements it.
type Observer = collab.Observer

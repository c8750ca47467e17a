// SPDX-FileCopyrightText: Copyright 2025 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package telemetry bootstraps the Wavefront proxy telemetry pipeline: it
// builds the sender, metrics reporter and tracer from a ProxyConfig and
// publishes the result into the service registry for HTTP middleware to use.
package telemetry

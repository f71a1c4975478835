// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package alert

import (
	"time"

	"golang.org/x/time/rate"
)

var SendSTARTTLS = sendSTARTTLS

func (e *EmailNotifier) SetSendFunc(fn SendFunc) { e.send = fn }

func (e *EmailNotifier) SetTimeout(d time.Duration) { e.timeout = d }

func (e *EmailNotifier) SetNowFunc(fn func() time.Time) { e.now = fn }

func (w *WebhookNotifier) SetLimiter(l *rate.Limiter) { w.limiter = l }

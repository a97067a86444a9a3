// Package eventbus provides the in-process publish/subscribe bus the engine
// uses to report runs to collectors.
package eventbus

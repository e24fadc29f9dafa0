// Package worker implements the background coordination protocol of the push worker:
// inbound push events and client commands are turned into effects (badge updates,
// notifications, log broadcasts) that a Runtime keeps alive until they settle.
//
// Handlers hold no state between events. Everything they decide is derived from the
// event itself plus point-in-time reads of host-owned state through the ports in
// ports.go.
package worker

// Package mqtt publishes Home Assistant MQTT discovery messages for
// devices and scenes learned from a Lutron bridge, and relays HA
// command topics back into the bridge through a SmartBridge.
//
// The publisher uses Eclipse Paho v2's [autopaho] package for
// connection management with automatic reconnection. On every
// (re-)connect it publishes retained discovery config payloads for
// each entity and a birth message ("online") to the availability
// topic. A will message transitions it to "offline" on unexpected
// disconnects.
package mqtt

/*
Implementation of a HTTP longpoll notification server and its clients.

A Source produces a new Item on a fixed cadence and writes it into a single-slot
Mailbox. Every GET request to the longpoll endpoint is bound to its own WaitLoop,
which polls the Mailbox until an Item shows up or the wait deadline passes. An
Item is handed to at most one waiting request; writing a new Item over an unread
one discards the old one (last-value cache).

Status codes returned by the longpoll endpoint:
	* 200 - timestamp and data as JSON
	* 204 - no data before the wait deadline, or the server is stopping; ask again
	* 400 - error as JSON
	* 405 - anything but GET, error as JSON
	* 500 - error as JSON

The package also carries the baseline endpoints the long poller is compared
against (plain request/response and a websocket echo), a Watcher that long
polls a server and a Poller that short polls one.
*/
package longpoll

// Package bridge is the boundary call surface. Extension modules register
// named methods; the application calls them as "Module.method" with a list
// of dynamic arguments and receives a dynamic result or a classified error.
//
// Registration is explicit: a Bridge only knows the modules it was given,
// and each module owns its registries and pending calls. Nothing is global.
//
// Asynchronous vendor APIs are adapted inside the handlers with call.Result,
// so every handler is a blocking function of (ctx, args). Event streams are
// published on the Bridge's shared call.Emitter.
package bridge

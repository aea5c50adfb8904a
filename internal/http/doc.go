// Package http serves the public site on a gin engine.
//
// API routes:
//   - GET /api/cron: revalidates the home path of every locale
//   - GET /api/keep-warm: pings the content store
//   - GET /api/localized-routes: maps the current page to its URL per locale
//   - POST /api/forms/submissions: runs the form submission pipeline
//   - GET /sitemap.xml
//
// Every other GET is a site route rendered as a JSON view model and served
// through the stale-while-revalidate route cache: /, /{locale}, /blog,
// /{locale}/blog, /blog/{slug}, the legal pages, and pages by URL.
//
// Host applications can mount the engine returned by Engine or the wrapped
// handler returned by Handler, which applies rewrites and host redirects
// before routing.
package http

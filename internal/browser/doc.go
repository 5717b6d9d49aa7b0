// Package browser renders candidate pages and reports the images a visitor
// would see.
//
// Two engines implement Renderer. The chrome engine drives headless Chrome
// through the DevTools protocol, waits for dynamic content, dismisses cookie
// consent overlays and measures every image with its on-screen bounding box.
// The static engine fetches the HTML over plain HTTP and sizes images from
// their width/height attributes or inline style; it needs no browser and
// serves synthetic pages in tests.
package browser

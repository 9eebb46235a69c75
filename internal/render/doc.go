// Package render draws the day's reply lines onto a PNG.
//
// Layout follows a fixed grid: each line gets a 30px row starting 10px from
// the top and 40px from the left, drawn at 20px with a dark, randomly tinted
// colour. In the fit layout the canvas is sized to the widest line; in the
// fixed layout it keeps a configured size and clips what does not fit.
//
// Without a configured font the renderer looks for a system CJK font, since
// the bundled Go Regular cannot draw the Chinese headline.
package render

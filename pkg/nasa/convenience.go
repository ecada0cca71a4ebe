package nasa

import "context"

// PictureOfTheDay fetches today's APOD, or the one for date.
func PictureOfTheDay(ctx context.Context, date string) (*APOD, error) {
	return New("").APOD(ctx, date, 0)
}

func MarsRoverPhotos(ctx context.Context, sol int, rover string) (*MarsPhotos, error) {
	return New("").MarsPhotos(ctx, sol, rover, "")
}

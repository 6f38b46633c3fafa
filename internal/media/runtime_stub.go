//go:build !govips || !cgo

package media

func Startup() error {
	return nil
}

func Shutdown() {}

func newTranscoder(quality int) Transcoder {
	return stdlibTranscoder{quality: quality}
}

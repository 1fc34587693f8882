// Package watch 基于 fsnotify 监听输入目录，把“新到媒体文件”按静默窗口
// 合并成批次。每个批次触发一轮处理（由上层调用 run.Execute）。
package watch

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/John-Robertt/takeoutfix/internal/scan"
)

// Watcher 递归监听 root 下的目录树。
//
// fsnotify 的监听不是递归的：需要逐目录 Add，并在收到新目录的
// Create 事件时动态补挂。事件在 settle 静默窗口内合并——最后一个
// 事件之后 settle 时间内没有新事件，才把累积的媒体路径作为一批
// 发到 Batches。导出工具往往成片解压文件，逐事件触发会把一轮
// 拆得支离破碎。
type Watcher struct {
	root    string
	settle  time.Duration
	fsw     *fsnotify.Watcher
	Batches chan []string
	done    chan struct{}
}

// New 创建并启动对 root 的递归监听。
func New(root string, settle time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:    root,
		settle:  settle,
		fsw:     fsw,
		Batches: make(chan []string, 4),
		done:    make(chan struct{}),
	}

	if err := w.addRecursive(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}

	go w.loop()
	return w, nil
}

// Close 停止监听并关闭 Batches。
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

// addRecursive 把 dir 及其全部子目录加入监听。
// 遍历中途消失的目录（解压工具的临时目录）忽略即可。
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer close(w.Batches)

	var timer *time.Timer
	var timerC <-chan time.Time
	seen := make(map[string]struct{})
	var pending []string

	resetTimer := func() {
		if timer == nil {
			timer = time.NewTimer(w.settle)
			timerC = timer.C
			return
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(w.settle)
	}

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}

			// 新目录：动态补挂（含其中已存在的内容）。
			if ev.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					_ = w.addRecursive(ev.Name)
					continue
				}
			}

			if !scan.IsMediaExt(strings.ToLower(filepath.Ext(ev.Name))) {
				continue
			}
			if _, dup := seen[ev.Name]; dup {
				resetTimer() // 仍在写入中，窗口顺延
				continue
			}
			seen[ev.Name] = struct{}{}
			pending = append(pending, ev.Name)
			resetTimer()

		case <-timerC:
			if len(pending) > 0 {
				batch := pending
				pending = nil
				seen = make(map[string]struct{})
				select {
				case w.Batches <- batch:
				case <-w.done:
					return
				}
			}
			timerC = nil
			timer = nil

		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// 监听错误不致命：下一轮全量扫描会兜底。

		case <-w.done:
			return
		}
	}
}
